package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"officina/internal/core"
	applog "officina/internal/log"
)

// View shapes for the history table and the monthly chart.

type itemRow struct {
	Name   string
	Amount string
}

type repairRow struct {
	ID      int64
	Date    string
	Items   []itemRow
	Opaque  bool // items blob could not be parsed; Items holds the raw text
	Amount  string
	Mileage string
}

type statRow struct {
	Label string // "2024-03"
	Count int
	Total string
	Width int // bar width percent against the year's max
}

func repairRows(repairs []core.Repair) []repairRow {
	rows := make([]repairRow, 0, len(repairs))
	for _, rep := range repairs {
		row := repairRow{
			ID:      rep.ID,
			Date:    rep.Date.String(),
			Opaque:  rep.ItemsOpaque,
			Amount:  formatEuros(rep.Amount.Cents),
			Mileage: "unknown",
		}
		if rep.Mileage != nil {
			row.Mileage = strconv.FormatInt(*rep.Mileage, 10) + " km"
		}
		for _, it := range rep.Items {
			row.Items = append(row.Items, itemRow{Name: it.Name, Amount: formatEuros(it.Amount.Cents)})
		}
		rows = append(rows, row)
	}
	return rows
}

func statRows(months [12]core.MonthlyStat) []statRow {
	var maxCents int64
	for _, m := range months {
		if m.Total.Cents > maxCents {
			maxCents = m.Total.Cents
		}
	}
	rows := make([]statRow, 0, len(months))
	for _, m := range months {
		width := 0
		if maxCents > 0 && m.Total.Cents > 0 {
			width = int((m.Total.Cents*100 + maxCents/2) / maxCents)
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		rows = append(rows, statRow{
			Label: m.Month.Format("2006-01"),
			Count: m.Count,
			Total: formatEuros(m.Total.Cents),
			Width: width,
		})
	}
	return rows
}

// handleCreateRepair stores a new repair record. A first submission on
// a date the customer already has a record for comes back as an
// advisory; resubmitting with confirm=1 stores it anyway.
func (s *Server) handleCreateRepair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	form, err := ParseRepairForm(r.Form)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	now := time.Now()
	if !form.Confirmed {
		dup, err := s.ledger.HasRepairOnDate(r.Context(), form.CustomerID, form.Date, now)
		if err != nil {
			writeRepairError(w, r, err)
			return
		}
		if dup {
			// Advisory only. The fragment re-posts the same form with
			// confirm=1 if the operator proceeds.
			NewHTMXResponse().
				TriggerWarningNotification("A repair is already recorded on this date").
				BodyHTML(`<div class="warning" id="duplicate-date-confirm">` +
					`A repair is already recorded on ` + form.Date + ` for this customer. ` +
					`<button type="button" onclick="confirmRepairSubmit()">Record anyway</button>` +
					`</div>`).
				Write(w)
			return
		}
	}

	id, err := s.ledger.AddRepair(r.Context(), form.CustomerID, form.Date, form.Items, form.Total, form.Mileage, now)
	if err != nil {
		writeRepairError(w, r, err)
		return
	}

	s.invalidateRecency()
	s.invalidateStats(form.CustomerID)
	applog.NewStructuredLogger(applog.FromContext(r.Context()).With(applog.FieldRepairID, id)).
		LogRepairRecorded(r.Context(), form.CustomerID, form.Date, len(form.Items), core.SumItems(form.Items).Cents)

	SuccessResponse(fmt.Sprintf("Repair recorded (%d items)", len(form.Items))).
		TriggerRepairRecorded(form.CustomerID).
		TriggerFormReset().
		Write(w)
}

// handleUpdateRepair fully replaces one record.
func (s *Server) handleUpdateRepair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Missing repair id").Write(w)
		return
	}
	form, err := ParseRepairForm(r.Form)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if err := s.ledger.UpdateRepair(r.Context(), id, form.CustomerID, form.Date, form.Items, form.Total, form.Mileage, time.Now()); err != nil {
		writeRepairError(w, r, err)
		return
	}

	s.invalidateRecency()
	s.invalidateStats(form.CustomerID)
	SuccessResponse("Repair updated").
		TriggerRepairRecorded(form.CustomerID).
		Write(w)
}

// handleDeleteRepair removes one record from the history.
func (s *Server) handleDeleteRepair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		BadRequestError("Missing repair id").Write(w)
		return
	}
	customerID, _ := parseID(r, "customer_id")

	if err := s.ledger.DeleteRepair(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Repair not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Delete repair error", "error", err, "id", id)
		InternalServerError("Failed deleting repair").Write(w)
		return
	}

	s.invalidateRecency()
	if customerID > 0 {
		s.invalidateStats(customerID)
	}
	SuccessResponse("Repair deleted").
		TriggerRepairDeleted(customerID).
		Write(w)
}

// handleMonthlyStats renders the per-customer monthly chart partial
// for the selected year.
func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	customerID, ok := parseID(r, "customer")
	if !ok {
		_, _ = w.Write([]byte(`<section id="monthly-stats"><div class="placeholder">Missing customer</div></section>`))
		return
	}
	year := parseYear(r)

	stats, years, err := s.getMonthlyStats(r.Context(), customerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly stats error", "error", err, "customer_id", customerID)
		_, _ = w.Write([]byte(`<section id="monthly-stats"><div class="placeholder">Failed loading monthly totals</div></section>`))
		return
	}

	data := struct {
		CustomerID int64
		Year       int
		Years      []int
		Months     []statRow
	}{
		CustomerID: customerID,
		Year:       year,
		Years:      years,
		Months:     statRows(core.FillYear(stats, year)),
	}

	if s.templates == nil {
		_, _ = fmt.Fprintf(w, `<section id="monthly-stats"><div class="placeholder">%d years of history</div></section>`, len(years))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "monthly_stats.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "monthly_stats.html")
		_, _ = w.Write([]byte(`<section id="monthly-stats"><div class="placeholder">Failed rendering monthly totals</div></section>`))
	}
}

// handleLatestMileage returns the carry-forward mileage fragment used
// to prefill the repair form.
func (s *Server) handleLatestMileage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	customerID, ok := parseID(r, "customer")
	if !ok {
		_, _ = w.Write([]byte(`<span id="latest-mileage"></span>`))
		return
	}

	mileage, err := s.ledger.LatestMileage(r.Context(), customerID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Latest mileage error", "error", err, "customer_id", customerID)
		_, _ = w.Write([]byte(`<span id="latest-mileage"></span>`))
		return
	}
	if mileage == nil {
		_, _ = w.Write([]byte(`<span id="latest-mileage">no recorded mileage</span>`))
		return
	}
	_, _ = fmt.Fprintf(w, `<span id="latest-mileage">last recorded: %d km</span>`, *mileage)
}

// getMonthlyStats loads and caches the full monthly series for one
// customer, plus the distinct years for the picker.
func (s *Server) getMonthlyStats(ctx context.Context, customerID int64) ([]core.MonthlyStat, []int, error) {
	key := statsKeyPrefix(customerID)
	if stats, found := s.statsCache.Get(key); found {
		slog.DebugContext(ctx, "Monthly stats cache hit", "customer_id", customerID)
		return stats, core.YearsCovered(stats), nil
	}

	stats, err := s.storage.MonthlyStats(ctx, customerID)
	if err != nil {
		return nil, nil, fmt.Errorf("load monthly stats (customer=%d): %w", customerID, err)
	}
	s.statsCache.Set(key, stats)
	return stats, core.YearsCovered(stats), nil
}

func writeRepairError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrDateOutOfRange),
		errors.Is(err, core.ErrNoItems),
		errors.Is(err, core.ErrEmptyItemName),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeMileage),
		errors.Is(err, core.ErrItemTotalMismatch):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Customer not found").Write(w)
	default:
		slog.ErrorContext(r.Context(), "Repair write error", "error", err)
		InternalServerError("Failed saving repair").Write(w)
	}
}
