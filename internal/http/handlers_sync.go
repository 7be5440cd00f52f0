package http

import (
	"fmt"
	"log/slog"
	"net/http"
)

// handleImport pulls customer rows from the interchange sheet into the
// ledger. Rows that fail validation are skipped and counted.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if s.interchange == nil {
		InternalServerError("No spreadsheet backend configured").Write(w)
		return
	}

	imported, skipped, err := s.ledger.ImportCustomers(r.Context(), s.interchange)
	if err != nil {
		slog.ErrorContext(r.Context(), "Customer import error", "error", err)
		InternalServerError("Import failed").Write(w)
		return
	}

	s.invalidateRecency()
	SuccessResponse(fmt.Sprintf("Imported %d customers (%d rows skipped)", imported, skipped)).
		TriggerCustomerChanged(0).
		Write(w)
}

// handleExport rewrites the interchange sheet from the ledger.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if s.interchange == nil {
		InternalServerError("No spreadsheet backend configured").Write(w)
		return
	}

	count, err := s.ledger.ExportCustomers(r.Context(), s.interchange)
	if err != nil {
		slog.ErrorContext(r.Context(), "Customer export error", "error", err)
		InternalServerError("Export failed").Write(w)
		return
	}

	SuccessResponse(fmt.Sprintf("Exported %d customers", count)).Write(w)
}
