package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"officina/internal/core"
)

// recencyRow is the template-facing shape of one board entry.
type recencyRow struct {
	ID        int64
	Name      string
	CarModel  string
	Contact   string
	LastVisit string
	DaysSince int
	Never     bool
}

// handleDashboard renders the landing page with the overdue and recent
// customer boards.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	days := parseDays(r)
	boards, err := s.getRecency(r.Context(), days)
	if err != nil {
		slog.ErrorContext(r.Context(), "Recency boards error", "error", err, "days", days)
		http.Error(w, "failed loading dashboard", http.StatusInternalServerError)
		return
	}

	data := struct {
		Days    int
		Overdue []recencyRow
		Recent  []recencyRow
	}{
		Days:    boards.Days,
		Overdue: recencyRows(boards.Overdue),
		Recent:  recencyRows(boards.Recent),
	}

	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Dashboard template execution failed", "error", err, "template", "dashboard.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleRecencyPartial renders the boards fragment for htmx refreshes.
func (s *Server) handleRecencyPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	days := parseDays(r)
	boards, err := s.getRecency(r.Context(), days)
	if err != nil {
		slog.ErrorContext(r.Context(), "Recency partial error", "error", err, "days", days)
		_, _ = w.Write([]byte(`<section id="recency-boards"><div class="placeholder">Failed loading customer boards</div></section>`))
		return
	}

	data := struct {
		Days    int
		Overdue []recencyRow
		Recent  []recencyRow
	}{
		Days:    boards.Days,
		Overdue: recencyRows(boards.Overdue),
		Recent:  recencyRows(boards.Recent),
	}

	if s.templates == nil {
		_, _ = fmt.Fprintf(w, `<section id="recency-boards"><div class="placeholder">%d overdue, %d recent</div></section>`,
			len(data.Overdue), len(data.Recent))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "recency_boards.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "recency_boards.html")
		_, _ = w.Write([]byte(`<section id="recency-boards"><div class="placeholder">Failed rendering customer boards</div></section>`))
	}
}

// getRecency loads both boards under one clock reading so a customer
// can never appear on both sides of the threshold.
func (s *Server) getRecency(ctx context.Context, days int) (recencyBoards, error) {
	key := recencyKey(days)
	if data, found := s.recencyCache.Get(key); found {
		slog.DebugContext(ctx, "Recency cache hit", "days", days)
		return data, nil
	}

	now := time.Now()
	overdue, err := s.storage.NotVisitedSince(ctx, now, days)
	if err != nil {
		return recencyBoards{}, fmt.Errorf("load overdue customers (days=%d): %w", days, err)
	}
	recent, err := s.storage.VisitedWithin(ctx, now, days)
	if err != nil {
		return recencyBoards{}, fmt.Errorf("load recent customers (days=%d): %w", days, err)
	}

	boards := recencyBoards{Days: days, Overdue: overdue, Recent: recent}
	s.recencyCache.Set(key, boards)
	slog.DebugContext(ctx, "Recency boards cached", "days", days,
		"overdue", len(overdue), "recent", len(recent))
	return boards, nil
}

func recencyRows(entries []core.CustomerRecency) []recencyRow {
	rows := make([]recencyRow, 0, len(entries))
	for _, e := range entries {
		row := recencyRow{
			ID:       e.Customer.ID,
			Name:     e.Customer.Name,
			CarModel: e.Customer.CarModel,
			Contact:  e.Customer.ContactInfo,
			Never:    e.NeverVisited(),
		}
		if !e.NeverVisited() {
			row.LastVisit = e.LastVisit.String()
			row.DaysSince = e.DaysSince
		}
		rows = append(rows, row)
	}
	return rows
}
