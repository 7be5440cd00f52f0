// Package storage is the durable side of the ledger: a SQLite store
// for customers, repairs and the repair-item catalog, plus the
// read-side queries the analytics and sync layers are built on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"officina/internal/core"

	_ "modernc.org/sqlite"
)

// Sync states for the write-behind spreadsheet export.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- customers ----

func (r *SQLiteRepository) AddCustomer(ctx context.Context, c core.Customer) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (name, car_model, contact_info, sync_status) VALUES (?, ?, ?, ?)`,
		c.Name, c.CarModel, c.ContactInfo, SyncPending)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("customer id: %w", err)
	}

	slog.InfoContext(ctx, "Customer saved", "id", id, "name", c.Name)
	return id, nil
}

func (r *SQLiteRepository) CustomerByID(ctx context.Context, id int64) (core.Customer, error) {
	var c core.Customer
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, car_model, contact_info FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CarModel, &c.ContactInfo)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, fmt.Errorf("customer %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// UpdateCustomer overwrites all editable fields and re-marks the row
// for spreadsheet sync.
func (r *SQLiteRepository) UpdateCustomer(ctx context.Context, c core.Customer) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE customers SET name = ?, car_model = ?, contact_info = ?, sync_status = ? WHERE id = ?`,
		c.Name, c.CarModel, c.ContactInfo, SyncPending, c.ID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update customer rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("customer %d: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteCustomer removes the customer and all of its repairs in one
// transaction. Cascading here (rather than rejecting) matches the
// single delete action the operator is given.
func (r *SQLiteRepository) DeleteCustomer(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete customer: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM repairs WHERE customer_id = ?`, id); err != nil {
		return fmt.Errorf("delete customer repairs: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete customer rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("customer %d: %w", id, core.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete customer: %w", err)
	}
	slog.InfoContext(ctx, "Customer deleted", "id", id)
	return nil
}

// ListCustomers returns all customers in insertion order.
func (r *SQLiteRepository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, car_model, contact_info FROM customers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		var c core.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CarModel, &c.ContactInfo); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- repairs ----

// AddRepair inserts the repair and registers any new item names in the
// catalog, all in one transaction. The customer must exist.
func (r *SQLiteRepository) AddRepair(ctx context.Context, rep core.Repair) (int64, error) {
	blob, err := core.EncodeItems(rep.Items)
	if err != nil {
		return 0, fmt.Errorf("encode items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin add repair: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM customers WHERE id = ?`, rep.CustomerID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check customer: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("customer %d: %w", rep.CustomerID, core.ErrNotFound)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO repairs (customer_id, repair_date, items, amount_cents, mileage) VALUES (?, ?, ?, ?, ?)`,
		rep.CustomerID, rep.Date.String(), blob, rep.Amount.Cents, nullMileage(rep.Mileage))
	if err != nil {
		return 0, fmt.Errorf("insert repair: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repair id: %w", err)
	}

	if err := addCatalogNamesTx(ctx, tx, rep.Items); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit add repair: %w", err)
	}

	slog.InfoContext(ctx, "Repair saved",
		"id", id,
		"customer_id", rep.CustomerID,
		"date", rep.Date.String(),
		"amount_cents", rep.Amount.Cents)
	return id, nil
}

// UpdateRepair fully replaces date, items, total and mileage.
func (r *SQLiteRepository) UpdateRepair(ctx context.Context, rep core.Repair) error {
	blob, err := core.EncodeItems(rep.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update repair: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE repairs SET repair_date = ?, items = ?, amount_cents = ?, mileage = ? WHERE id = ?`,
		rep.Date.String(), blob, rep.Amount.Cents, nullMileage(rep.Mileage), rep.ID)
	if err != nil {
		return fmt.Errorf("update repair: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update repair rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("repair %d: %w", rep.ID, core.ErrNotFound)
	}

	if err := addCatalogNamesTx(ctx, tx, rep.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update repair: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRepair(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM repairs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete repair: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete repair rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("repair %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) RepairByID(ctx context.Context, id int64) (core.Repair, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, repair_date, items, amount_cents, mileage
		 FROM repairs WHERE id = ?`, id)
	rep, err := scanRepair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Repair{}, fmt.Errorf("repair %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Repair{}, fmt.Errorf("get repair: %w", err)
	}
	return rep, nil
}

// RepairsByCustomer returns the customer's history newest-first.
func (r *SQLiteRepository) RepairsByCustomer(ctx context.Context, customerID int64) ([]core.Repair, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, customer_id, repair_date, items, amount_cents, mileage
		 FROM repairs WHERE customer_id = ?
		 ORDER BY repair_date DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list repairs: %w", err)
	}
	defer rows.Close()

	var out []core.Repair
	for rows.Next() {
		rep, err := scanRepair(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repair: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// LatestRepairByCustomer returns the newest repair, for the dashboard
// board detail lines.
func (r *SQLiteRepository) LatestRepairByCustomer(ctx context.Context, customerID int64) (core.Repair, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, repair_date, items, amount_cents, mileage
		 FROM repairs WHERE customer_id = ?
		 ORDER BY repair_date DESC, id DESC LIMIT 1`, customerID)
	rep, err := scanRepair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Repair{}, fmt.Errorf("latest repair for customer %d: %w", customerID, core.ErrNotFound)
	}
	if err != nil {
		return core.Repair{}, fmt.Errorf("latest repair: %w", err)
	}
	return rep, nil
}

// LatestMileage returns the mileage of the most recent repair that has
// one recorded. Nil means the customer has no known mileage at all.
func (r *SQLiteRepository) LatestMileage(ctx context.Context, customerID int64) (*int64, error) {
	var m int64
	err := r.db.QueryRowContext(ctx,
		`SELECT mileage FROM repairs
		 WHERE customer_id = ? AND mileage IS NOT NULL
		 ORDER BY repair_date DESC, id DESC LIMIT 1`, customerID).Scan(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest mileage: %w", err)
	}
	return &m, nil
}

// HasRepairOnDate is the duplicate-date advisory. It never blocks a
// write; callers decide what to do with a true result.
func (r *SQLiteRepository) HasRepairOnDate(ctx context.Context, customerID int64, date core.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM repairs WHERE customer_id = ? AND repair_date = ?`,
		customerID, date.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check repair date: %w", err)
	}
	return n > 0, nil
}

// ---- repair-item catalog ----

// ListItems returns the catalog names, alphabetical for a stable
// selection UI.
func (r *SQLiteRepository) ListItems(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM repair_items ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list repair items: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan repair item: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// AddItemIfAbsent is an idempotent insert; duplicates are a no-op.
func (r *SQLiteRepository) AddItemIfAbsent(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO repair_items (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("add repair item: %w", err)
	}
	return nil
}

// ReplaceAllItems atomically swaps the catalog contents. Existing
// repair rows are unaffected; they store copies of the names.
func (r *SQLiteRepository) ReplaceAllItems(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace items: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM repair_items`); err != nil {
		return fmt.Errorf("clear repair items: %w", err)
	}
	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO repair_items (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert repair item %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace items: %w", err)
	}
	slog.InfoContext(ctx, "Repair item catalog replaced", "count", len(names))
	return nil
}

// ---- analytics ----

// MonthlyStats buckets the customer's repairs by the first day of
// their month, ascending. The series is sparse; core.FillYear joins it
// against a calendar year for charting.
func (r *SQLiteRepository) MonthlyStats(ctx context.Context, customerID int64) ([]core.MonthlyStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date(substr(repair_date, 1, 7) || '-01') AS month_dt,
		        COUNT(*) AS cnt,
		        SUM(amount_cents) AS total_cents
		 FROM repairs
		 WHERE customer_id = ?
		 GROUP BY month_dt
		 ORDER BY month_dt ASC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyStat
	for rows.Next() {
		var (
			month string
			stat  core.MonthlyStat
		)
		if err := rows.Scan(&month, &stat.Count, &stat.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly stat: %w", err)
		}
		t, err := time.ParseInLocation(core.DateLayout, month, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse month %q: %w", month, err)
		}
		stat.Month = core.Date{Time: t}
		out = append(out, stat)
	}
	return out, rows.Err()
}

// NotVisitedSince returns customers whose last repair is more than
// days ago, or who have never visited, most overdue first. Customers
// with no history sort as infinitely overdue. The caller's now is used
// for the whole pass so both boards share one reference time.
func (r *SQLiteRepository) NotVisitedSince(ctx context.Context, now time.Time, days int) ([]core.CustomerRecency, error) {
	all, err := r.customersWithLastVisit(ctx, now)
	if err != nil {
		return nil, err
	}

	var out []core.CustomerRecency
	for _, c := range all {
		if c.NeverVisited() || c.DaysSince > days {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.NeverVisited() != b.NeverVisited():
			return a.NeverVisited()
		case a.NeverVisited():
			return a.Customer.ID < b.Customer.ID
		case a.DaysSince != b.DaysSince:
			return a.DaysSince > b.DaysSince
		default:
			return a.Customer.ID < b.Customer.ID
		}
	})
	return out, nil
}

// VisitedWithin returns customers whose last repair falls within the
// last days days, most recent first. Never-visited customers are
// excluded by convention.
func (r *SQLiteRepository) VisitedWithin(ctx context.Context, now time.Time, days int) ([]core.CustomerRecency, error) {
	all, err := r.customersWithLastVisit(ctx, now)
	if err != nil {
		return nil, err
	}

	var out []core.CustomerRecency
	for _, c := range all {
		if !c.NeverVisited() && c.DaysSince <= days {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DaysSince != b.DaysSince {
			return a.DaysSince < b.DaysSince
		}
		return a.Customer.ID < b.Customer.ID
	})
	return out, nil
}

func (r *SQLiteRepository) customersWithLastVisit(ctx context.Context, now time.Time) ([]core.CustomerRecency, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.car_model, c.contact_info, MAX(r.repair_date) AS last_visit
		 FROM customers c
		 LEFT JOIN repairs r ON r.customer_id = c.id
		 GROUP BY c.id
		 ORDER BY c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("customers with last visit: %w", err)
	}
	defer rows.Close()

	var out []core.CustomerRecency
	for rows.Next() {
		var (
			rec  core.CustomerRecency
			last sql.NullString
		)
		if err := rows.Scan(&rec.Customer.ID, &rec.Customer.Name,
			&rec.Customer.CarModel, &rec.Customer.ContactInfo, &last); err != nil {
			return nil, fmt.Errorf("scan recency row: %w", err)
		}
		if last.Valid {
			t, err := time.ParseInLocation(core.DateLayout, last.String, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("parse last visit %q: %w", last.String, err)
			}
			d := core.Date{Time: t}
			rec.LastVisit = &d
			rec.DaysSince = core.DaysSince(d, now)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ---- spreadsheet sync bookkeeping ----

// PendingSyncCustomers lists customers waiting for export, oldest first.
func (r *SQLiteRepository) PendingSyncCustomers(ctx context.Context, limit int) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, car_model, contact_info FROM customers
		 WHERE sync_status = ? ORDER BY id ASC LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync customers: %w", err)
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		var c core.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CarModel, &c.ContactInfo); err != nil {
			return nil, fmt.Errorf("scan pending customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE customers SET sync_status = ? WHERE id = ?`, SyncDone, id); err != nil {
		return fmt.Errorf("mark customer synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE customers SET sync_status = ? WHERE id = ?`, SyncError, id); err != nil {
		return fmt.Errorf("mark customer sync error: %w", err)
	}
	slog.WarnContext(ctx, "Customer marked with sync error", "id", id)
	return nil
}

// ---- helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepair(row rowScanner) (core.Repair, error) {
	var (
		rep     core.Repair
		date    string
		blob    string
		mileage sql.NullInt64
	)
	if err := row.Scan(&rep.ID, &rep.CustomerID, &date, &blob, &rep.Amount.Cents, &mileage); err != nil {
		return core.Repair{}, err
	}
	t, err := time.ParseInLocation(core.DateLayout, date, time.UTC)
	if err != nil {
		return core.Repair{}, fmt.Errorf("parse repair date %q: %w", date, err)
	}
	rep.Date = core.Date{Time: t}
	if mileage.Valid {
		m := mileage.Int64
		rep.Mileage = &m
	}
	// A legacy blob degrades to one opaque line; it never fails the read.
	view := core.ParseItems(blob, rep.Amount)
	rep.Items = view.Items
	rep.ItemsOpaque = view.Opaque
	return rep, nil
}

func nullMileage(m *int64) any {
	if m == nil {
		return nil
	}
	return *m
}

func addCatalogNamesTx(ctx context.Context, tx *sql.Tx, items []core.RepairItem) error {
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO repair_items (name) VALUES (?)`, it.Name); err != nil {
			return fmt.Errorf("register catalog item %q: %w", it.Name, err)
		}
	}
	return nil
}
