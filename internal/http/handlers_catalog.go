package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"officina/internal/core"
)

// handleCatalog renders the repair item catalog editor.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	items, err := s.ledger.ListCatalog(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List catalog error", "error", err)
		http.Error(w, "failed loading catalog", http.StatusInternalServerError)
		return
	}
	data := struct {
		Items []string
	}{Items: items}

	if err := s.templates.ExecuteTemplate(w, "catalog.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Catalog template execution failed", "error", err, "template", "catalog.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleCatalogAdd registers a single item name.
func (s *Server) handleCatalogAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if err := s.ledger.AddCatalogItem(r.Context(), name); err != nil {
		if errors.Is(err, core.ErrEmptyItemName) {
			UnprocessableEntityError("Item name cannot be empty").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Add catalog item error", "error", err, "name", name)
		InternalServerError("Failed saving catalog item").Write(w)
		return
	}

	SuccessResponse("Item added to catalog: " + name).
		TriggerCatalogUpdated().
		TriggerFormReset().
		Write(w)
}

// handleCatalogReplace swaps the whole catalog for the submitted list,
// one item name per line. Repair records keep their own name copies.
func (s *Server) handleCatalogReplace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowedError("POST").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	names := strings.Split(r.Form.Get("items"), "\n")
	for i := range names {
		names[i] = sanitizeInput(names[i])
	}

	if err := s.ledger.ReplaceCatalog(r.Context(), names); err != nil {
		slog.ErrorContext(r.Context(), "Replace catalog error", "error", err)
		InternalServerError("Failed replacing catalog").Write(w)
		return
	}

	SuccessResponse("Catalog replaced").
		TriggerCatalogUpdated().
		Write(w)
}
