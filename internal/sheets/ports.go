package sheets

import (
	"context"

	"officina/internal/core"
)

// CustomerRow is one tabular interchange row. The columns are the only
// boundary between the ledger and external spreadsheets.
type CustomerRow struct {
	Name        string
	CarModel    string
	ContactInfo string
}

// Ports for outbound adapters.
type (
	// CustomerWriter appends one customer row to the interchange sheet.
	CustomerWriter interface {
		Append(ctx context.Context, c core.Customer) (rowRef string, err error)
	}

	// CustomerReader lists raw rows for bulk import. Rows are not
	// validated here; import feeds them through the ledger service.
	CustomerReader interface {
		ListRows(ctx context.Context) ([]CustomerRow, error)
	}

	// CustomerReplacer rewrites the whole sheet from the ledger, used
	// by full exports.
	CustomerReplacer interface {
		ReplaceRows(ctx context.Context, customers []core.Customer) error
	}

	// Interchange is the full spreadsheet boundary: append, bulk read
	// and full rewrite.
	Interchange interface {
		CustomerWriter
		CustomerReader
		CustomerReplacer
	}
)
