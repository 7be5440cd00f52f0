// Package google implements the spreadsheet interchange boundary on
// top of the Google Sheets API. One tab holds customer rows with the
// columns name, car_model, contact_info (header in row 1).
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"officina/internal/core"
	ports "officina/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc            *gsheet.Service
	spreadsheetID  string
	customersSheet string
}

// Ensure interface conformance
var (
	_ ports.CustomerWriter   = (*Client)(nil)
	_ ports.CustomerReader   = (*Client)(nil)
	_ ports.CustomerReplacer = (*Client)(nil)
)

// New creates a Sheets client for the given spreadsheet and tab. The
// id and tab name come from the validated config; only the
// service-account credentials are resolved from the environment
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS).
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Customers"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:            svc,
		spreadsheetID:  spreadsheetID,
		customersSheet: sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Append writes one customer row after the existing rows and returns
// its range reference.
func (c *Client) Append(ctx context.Context, cust core.Customer) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:C", c.customersSheet)
	vr := &gsheet.ValueRange{Values: [][]any{{cust.Name, cust.CarModel, cust.ContactInfo}}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append customer row to %s: %w", c.customersSheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Customer row appended", "ref", ref, "name", cust.Name)
	return ref, nil
}

// ListRows reads every data row below the header. Short rows are
// padded with empty strings; validation happens in the import path.
func (c *Client) ListRows(ctx context.Context) ([]ports.CustomerRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A2:C", c.customersSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read customer rows from %s: %w", c.customersSheet, err)
	}

	var out []ports.CustomerRow
	for _, row := range resp.Values {
		out = append(out, ports.CustomerRow{
			Name:        cellString(row, 0),
			CarModel:    cellString(row, 1),
			ContactInfo: cellString(row, 2),
		})
	}
	return out, nil
}

// ReplaceRows clears the data region and rewrites it from the ledger.
func (c *Client) ReplaceRows(ctx context.Context, customers []core.Customer) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRng := fmt.Sprintf("%s!A2:C", c.customersSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear customer rows in %s: %w", c.customersSheet, err)
	}

	if len(customers) == 0 {
		return nil
	}

	values := make([][]any, 0, len(customers)+1)
	for _, cust := range customers {
		values = append(values, []any{cust.Name, cust.CarModel, cust.ContactInfo})
	}
	writeRng := fmt.Sprintf("%s!A2:C%d", c.customersSheet, len(customers)+1)
	vr := &gsheet.ValueRange{Values: values}

	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write customer rows to %s: %w", c.customersSheet, err)
	}

	slog.InfoContext(ctx, "Customer sheet replaced", "rows", len(customers))
	return nil
}

func cellString(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return strings.TrimSpace(s)
}
