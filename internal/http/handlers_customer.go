package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"officina/internal/core"
)

// handleCustomers serves the customer list page on GET and creates a
// customer on POST.
func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderCustomerList(w, r)
	case http.MethodPost:
		s.createCustomer(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderCustomerList(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	customers, err := s.storage.ListCustomers(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List customers error", "error", err)
		http.Error(w, "failed loading customers", http.StatusInternalServerError)
		return
	}
	data := struct {
		Customers []core.Customer
	}{Customers: customers}

	if err := s.templates.ExecuteTemplate(w, "customers.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Customers template execution failed", "error", err, "template", "customers.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	form := ParseCustomerForm(r.Form)
	id, err := s.ledger.AddCustomer(r.Context(), form.Name, form.CarModel, form.ContactInfo)
	if err != nil {
		writeCustomerError(w, r, err)
		return
	}

	s.invalidateRecency()
	SuccessResponse(fmt.Sprintf("Customer registered: %s (%s)", form.Name, form.CarModel)).
		TriggerCustomerChanged(id).
		TriggerFormReset().
		Write(w)
}

// handleCustomerPage renders one customer: profile, repair history with
// itemized lines, the monthly totals chart and the new-repair form.
func (s *Server) handleCustomerPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	id, ok := parseID(r, "id")
	if !ok {
		http.Error(w, "missing customer id", http.StatusBadRequest)
		return
	}

	customer, err := s.storage.CustomerByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Get customer error", "error", err, "id", id)
		http.Error(w, "failed loading customer", http.StatusInternalServerError)
		return
	}

	repairs, err := s.storage.RepairsByCustomer(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "List repairs error", "error", err, "customer_id", id)
		http.Error(w, "failed loading repairs", http.StatusInternalServerError)
		return
	}

	catalog, err := s.ledger.ListCatalog(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List catalog error", "error", err)
	}

	latestMileage, err := s.ledger.LatestMileage(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Latest mileage error", "error", err, "customer_id", id)
	}

	year := parseYear(r)
	stats, years, err := s.getMonthlyStats(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly stats error", "error", err, "customer_id", id)
	}

	data := struct {
		Customer      core.Customer
		Repairs       []repairRow
		Catalog       []string
		LatestMileage *int64
		Year          int
		Years         []int
		Months        []statRow
	}{
		Customer:      customer,
		Repairs:       repairRows(repairs),
		Catalog:       catalog,
		LatestMileage: latestMileage,
		Year:          year,
		Years:         years,
		Months:        statRows(core.FillYear(stats, year)),
	}

	if err := s.templates.ExecuteTemplate(w, "customer.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Customer template execution failed", "error", err, "template", "customer.html", "id", id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleUpdateCustomer replaces the customer's profile fields.
func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing customer id").Write(w)
		return
	}

	form := ParseCustomerForm(r.Form)
	if err := s.ledger.UpdateCustomer(r.Context(), id, form.Name, form.CarModel, form.ContactInfo); err != nil {
		writeCustomerError(w, r, err)
		return
	}

	s.invalidateRecency()
	SuccessResponse("Customer updated").
		TriggerCustomerChanged(id).
		Write(w)
}

// handleDeleteCustomer removes the customer and, in the same
// transaction, their whole repair history.
func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing customer id").Write(w)
		return
	}

	if err := s.ledger.DeleteCustomer(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Customer not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Delete customer error", "error", err, "id", id)
		InternalServerError("Failed deleting customer").Write(w)
		return
	}

	s.invalidateRecency()
	s.invalidateStats(id)
	SuccessResponse("Customer and repair history deleted").
		TriggerCustomerChanged(id).
		Write(w)
}

func writeCustomerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCarModel),
		errors.Is(err, core.ErrEmptyContact):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Customer not found").Write(w)
	default:
		slog.ErrorContext(r.Context(), "Customer write error", "error", err)
		InternalServerError("Failed saving customer").Write(w)
	}
}
