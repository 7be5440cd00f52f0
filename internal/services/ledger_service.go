// Package services orchestrates ledger writes: validation, total
// enforcement, catalog upkeep and the best-effort sync publish that
// mirrors customers to the interchange spreadsheet.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"officina/internal/core"
	"officina/internal/sheets"
	"officina/internal/storage"
)

// SyncPublisher enqueues spreadsheet export requests. *amqp.Client
// implements it; a nil publisher disables the write-behind mirror.
type SyncPublisher interface {
	PublishCustomerSync(ctx context.Context, id int64) error
}

type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher SyncPublisher
}

func NewLedgerService(storage *storage.SQLiteRepository, publisher SyncPublisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
	}
}

// AddCustomer validates and stores a new customer, then publishes a
// sync message. The local save always wins: a failed publish is logged
// and the pending sync_status row is picked up by the worker later.
func (s *LedgerService) AddCustomer(ctx context.Context, name, carModel, contactInfo string) (int64, error) {
	c := core.Customer{
		Name:        strings.TrimSpace(name),
		CarModel:    strings.TrimSpace(carModel),
		ContactInfo: strings.TrimSpace(contactInfo),
	}
	if err := c.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.AddCustomer(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("save customer: %w", err)
	}

	s.publishSync(ctx, id)
	return id, nil
}

func (s *LedgerService) UpdateCustomer(ctx context.Context, id int64, name, carModel, contactInfo string) error {
	c := core.Customer{
		ID:          id,
		Name:        strings.TrimSpace(name),
		CarModel:    strings.TrimSpace(carModel),
		ContactInfo: strings.TrimSpace(contactInfo),
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateCustomer(ctx, c); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	s.publishSync(ctx, id)
	return nil
}

func (s *LedgerService) DeleteCustomer(ctx context.Context, id int64) error {
	return s.storage.DeleteCustomer(ctx, id)
}

// AddRepair parses and validates the record, enforces the total
// invariant and stores it. The date must lie in [1900, now.Year()].
// A non-nil total must equal the sum of the item amounts.
func (s *LedgerService) AddRepair(ctx context.Context, customerID int64, dateStr string, items []core.RepairItem, total *core.Money, mileage *int64, now time.Time) (int64, error) {
	rep, err := buildRepair(customerID, dateStr, items, total, mileage, now)
	if err != nil {
		return 0, err
	}
	id, err := s.storage.AddRepair(ctx, rep)
	if err != nil {
		return 0, fmt.Errorf("save repair: %w", err)
	}
	return id, nil
}

// UpdateRepair fully replaces an existing record under the same rules
// as AddRepair.
func (s *LedgerService) UpdateRepair(ctx context.Context, id, customerID int64, dateStr string, items []core.RepairItem, total *core.Money, mileage *int64, now time.Time) error {
	rep, err := buildRepair(customerID, dateStr, items, total, mileage, now)
	if err != nil {
		return err
	}
	rep.ID = id
	if err := s.storage.UpdateRepair(ctx, rep); err != nil {
		return fmt.Errorf("update repair: %w", err)
	}
	return nil
}

func (s *LedgerService) DeleteRepair(ctx context.Context, id int64) error {
	return s.storage.DeleteRepair(ctx, id)
}

// HasRepairOnDate is the duplicate-date advisory check run before a
// new record is committed. It informs; it never blocks.
func (s *LedgerService) HasRepairOnDate(ctx context.Context, customerID int64, dateStr string, now time.Time) (bool, error) {
	date, err := core.ParseDate(dateStr, now)
	if err != nil {
		return false, err
	}
	return s.storage.HasRepairOnDate(ctx, customerID, date)
}

// LatestMileage supplies the carry-forward default when the operator
// marks the current mileage unknown.
func (s *LedgerService) LatestMileage(ctx context.Context, customerID int64) (*int64, error) {
	return s.storage.LatestMileage(ctx, customerID)
}

// ListCatalog returns the known repair item names, sorted.
func (s *LedgerService) ListCatalog(ctx context.Context) ([]string, error) {
	return s.storage.ListItems(ctx)
}

// AddCatalogItem registers one item name; already-known names are a
// no-op.
func (s *LedgerService) AddCatalogItem(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyItemName
	}
	return s.storage.AddItemIfAbsent(ctx, name)
}

// ReplaceCatalog swaps the whole catalog for the given names. Blank
// entries are dropped; repair records keep their own name copies, so
// shrinking the catalog never rewrites history.
func (s *LedgerService) ReplaceCatalog(ctx context.Context, names []string) error {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	return s.storage.ReplaceAllItems(ctx, cleaned)
}

// ImportCustomers creates one customer per sheet row, through the same
// validation as interactive adds. Bad rows are skipped and counted,
// not fatal: a half-good spreadsheet still imports its good half.
func (s *LedgerService) ImportCustomers(ctx context.Context, reader sheets.CustomerReader) (imported, skipped int, err error) {
	rows, err := reader.ListRows(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read import rows: %w", err)
	}

	for _, row := range rows {
		if _, err := s.AddCustomer(ctx, row.Name, row.CarModel, row.ContactInfo); err != nil {
			slog.WarnContext(ctx, "Skipping import row",
				"name", row.Name, "error", err)
			skipped++
			continue
		}
		imported++
	}

	slog.InfoContext(ctx, "Customer import finished",
		"imported", imported, "skipped", skipped)
	return imported, skipped, nil
}

// ExportCustomers rewrites the interchange sheet with every customer.
func (s *LedgerService) ExportCustomers(ctx context.Context, replacer sheets.CustomerReplacer) (int, error) {
	customers, err := s.storage.ListCustomers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list customers for export: %w", err)
	}
	if err := replacer.ReplaceRows(ctx, customers); err != nil {
		return 0, fmt.Errorf("write export rows: %w", err)
	}
	slog.InfoContext(ctx, "Customer export finished", "count", len(customers))
	return len(customers), nil
}

func (s *LedgerService) publishSync(ctx context.Context, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCustomerSync(ctx, id); err != nil {
		// Local save already succeeded; the pending row is the fallback.
		slog.ErrorContext(ctx, "Failed to publish customer sync message",
			"id", id, "error", err)
	}
}

func (s *LedgerService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close storage: %w", err)
		}
	}
	return nil
}

func buildRepair(customerID int64, dateStr string, items []core.RepairItem, total *core.Money, mileage *int64, now time.Time) (core.Repair, error) {
	date, err := core.ParseDate(dateStr, now)
	if err != nil {
		return core.Repair{}, err
	}

	trimmed := make([]core.RepairItem, 0, len(items))
	for _, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		trimmed = append(trimmed, it)
	}

	sum := core.SumItems(trimmed)
	if total != nil && total.Cents != sum.Cents {
		return core.Repair{}, core.ErrItemTotalMismatch
	}

	rep := core.Repair{
		CustomerID: customerID,
		Date:       date,
		Items:      trimmed,
		Amount:     sum,
		Mileage:    mileage,
	}
	if err := rep.Validate(now); err != nil {
		return core.Repair{}, err
	}
	return rep, nil
}
