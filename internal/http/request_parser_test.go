package http

import (
	"net/url"
	"testing"
)

func TestParseCustomerForm(t *testing.T) {
	form := url.Values{
		"name":         {"  Alice \x00"},
		"car_model":    {" Sedan-X "},
		"contact_info": {"555-0100"},
	}
	got := ParseCustomerForm(form)
	if got.Name != "Alice" || got.CarModel != "Sedan-X" || got.ContactInfo != "555-0100" {
		t.Fatalf("parsed form = %+v", got)
	}
}

func TestParseRepairForm(t *testing.T) {
	form := url.Values{
		"customer_id": {"7"},
		"date":        {"2024-03-15"},
		"item_name":   {"oil change", "tire rotation", ""},
		"item_amount": {"50.00", "20,00", ""},
		"total":       {"70.00"},
		"mileage":     {"12000"},
		"confirm":     {"1"},
	}

	rf, err := ParseRepairForm(form)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rf.CustomerID != 7 || rf.Date != "2024-03-15" || !rf.Confirmed {
		t.Fatalf("header fields = %+v", rf)
	}
	if len(rf.Items) != 2 {
		t.Fatalf("items = %d, want 2 (blank row dropped)", len(rf.Items))
	}
	if rf.Items[0].Amount.Cents != 5000 || rf.Items[1].Amount.Cents != 2000 {
		t.Fatalf("amounts = %d, %d", rf.Items[0].Amount.Cents, rf.Items[1].Amount.Cents)
	}
	if rf.Total == nil || rf.Total.Cents != 7000 {
		t.Fatalf("total = %+v", rf.Total)
	}
	if rf.Mileage == nil || *rf.Mileage != 12000 {
		t.Fatalf("mileage = %+v", rf.Mileage)
	}
}

func TestParseRepairFormMileageUnknown(t *testing.T) {
	form := url.Values{
		"customer_id":     {"7"},
		"date":            {"2024-03-15"},
		"item_name":       {"inspection"},
		"item_amount":     {"30.00"},
		"mileage":         {"12000"},
		"mileage_unknown": {"1"},
	}
	rf, err := ParseRepairForm(form)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// The unknown checkbox wins over a typed value.
	if rf.Mileage != nil {
		t.Fatalf("mileage = %v, want nil", *rf.Mileage)
	}
}

func TestParseRepairFormErrors(t *testing.T) {
	cases := []struct {
		name string
		form url.Values
	}{
		{"missing customer", url.Values{
			"date": {"2024-03-15"}, "item_name": {"x"}, "item_amount": {"1.00"},
		}},
		{"uneven rows", url.Values{
			"customer_id": {"7"}, "date": {"2024-03-15"},
			"item_name": {"a", "b"}, "item_amount": {"1.00"},
		}},
		{"bad amount", url.Values{
			"customer_id": {"7"}, "date": {"2024-03-15"},
			"item_name": {"a"}, "item_amount": {"one euro"},
		}},
		{"bad total", url.Values{
			"customer_id": {"7"}, "date": {"2024-03-15"},
			"item_name": {"a"}, "item_amount": {"1.00"}, "total": {"??"},
		}},
		{"bad mileage", url.Values{
			"customer_id": {"7"}, "date": {"2024-03-15"},
			"item_name": {"a"}, "item_amount": {"1.00"}, "mileage": {"12k"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseRepairForm(tc.form); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
