// Form parsing for the ledger UI. Handlers stay thin: they hand the
// raw form here and get back domain values or a user-facing error.
package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"officina/internal/core"
)

var (
	errMissingCustomer = errors.New("missing or invalid customer id")
	errUnevenItemRows  = errors.New("item names and amounts do not line up")
)

// CustomerForm holds the sanitized fields of a customer create/update.
type CustomerForm struct {
	Name        string
	CarModel    string
	ContactInfo string
}

// ParseCustomerForm extracts and sanitizes customer fields. Validation
// of required fields happens in the service.
func ParseCustomerForm(form url.Values) CustomerForm {
	return CustomerForm{
		Name:        sanitizeInput(form.Get("name")),
		CarModel:    sanitizeInput(form.Get("car_model")),
		ContactInfo: sanitizeInput(form.Get("contact_info")),
	}
}

// RepairForm holds one parsed repair submission. Total is nil when the
// operator left the field blank, Mileage is nil when marked unknown.
type RepairForm struct {
	CustomerID int64
	Date       string
	Items      []core.RepairItem
	Total      *core.Money
	Mileage    *int64
	Confirmed  bool
}

// ParseRepairForm decodes the repair form: parallel item_name[] and
// item_amount[] rows, an optional expected total and optional mileage.
// confirm=1 acknowledges the duplicate-date advisory.
func ParseRepairForm(form url.Values) (RepairForm, error) {
	rf := RepairForm{
		Date:      strings.TrimSpace(form.Get("date")),
		Confirmed: form.Get("confirm") == "1",
	}

	id, err := strconv.ParseInt(strings.TrimSpace(form.Get("customer_id")), 10, 64)
	if err != nil || id < 1 {
		return RepairForm{}, errMissingCustomer
	}
	rf.CustomerID = id

	names := form["item_name"]
	amounts := form["item_amount"]
	if len(names) != len(amounts) {
		return RepairForm{}, errUnevenItemRows
	}
	for i := range names {
		name := sanitizeInput(names[i])
		amountStr := strings.TrimSpace(amounts[i])
		if name == "" && amountStr == "" {
			// Blank filler row from the form grid.
			continue
		}
		cents, err := core.ParseDecimalToCents(amountStr)
		if err != nil {
			return RepairForm{}, err
		}
		rf.Items = append(rf.Items, core.RepairItem{
			Name:   name,
			Amount: core.Money{Cents: cents},
		})
	}

	if v := strings.TrimSpace(form.Get("total")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return RepairForm{}, err
		}
		rf.Total = &core.Money{Cents: cents}
	}

	if form.Get("mileage_unknown") != "1" {
		if v := strings.TrimSpace(form.Get("mileage")); v != "" {
			m, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return RepairForm{}, errors.New("invalid mileage")
			}
			rf.Mileage = &m
		}
	}

	return rf, nil
}
