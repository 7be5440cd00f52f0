package core

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		wantErr error
	}{
		{"2024-03-15", nil},
		{"1900-01-01", nil},
		{"2025-12-31", nil},
		{"1899-12-31", ErrDateOutOfRange},
		{"2026-01-01", ErrDateOutOfRange},
		{"15/03/2024", ErrInvalidDate},
		{"2024-13-01", ErrInvalidDate},
		{"", ErrInvalidDate},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in, testNow)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("ParseDate(%q): got err %v, want %v", tc.in, err, tc.wantErr)
		}
		if err == nil && d.String() != tc.in {
			t.Fatalf("ParseDate(%q): round trip gave %q", tc.in, d.String())
		}
	}
}

func TestCustomerValidate(t *testing.T) {
	good := Customer{Name: "Alice", CarModel: "Sedan-X", ContactInfo: "555-0100"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		c    Customer
		want error
	}{
		{Customer{Name: "  ", CarModel: "m", ContactInfo: "c"}, ErrEmptyName},
		{Customer{Name: "n", CarModel: "", ContactInfo: "c"}, ErrEmptyCarModel},
		{Customer{Name: "n", CarModel: "m", ContactInfo: " "}, ErrEmptyContact},
	}
	for i, tc := range bads {
		if err := tc.c.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestRepairValidate(t *testing.T) {
	mileage := int64(12000)
	good := Repair{
		Date:    NewDate(2024, 3, 15),
		Items:   []RepairItem{{Name: "oil change", Amount: Money{Cents: 5000}}},
		Mileage: &mileage,
	}
	if err := good.Validate(testNow); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	neg := int64(-1)
	bads := []struct {
		r    Repair
		want error
	}{
		{Repair{Date: Date{}, Items: good.Items}, ErrInvalidDate},
		{Repair{Date: NewDate(1899, 1, 1), Items: good.Items}, ErrDateOutOfRange},
		{Repair{Date: good.Date}, ErrNoItems},
		{Repair{Date: good.Date, Items: []RepairItem{{Name: " "}}}, ErrEmptyItemName},
		{Repair{Date: good.Date, Items: []RepairItem{{Name: "x", Amount: Money{Cents: -1}}}}, ErrInvalidAmount},
		{Repair{Date: good.Date, Items: good.Items, Mileage: &neg}, ErrNegativeMileage},
	}
	for i, tc := range bads {
		if err := tc.r.Validate(testNow); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestSumItems(t *testing.T) {
	items := []RepairItem{
		{Name: "oil change", Amount: Money{Cents: 5000}},
		{Name: "tire rotation", Amount: Money{Cents: 2000}},
	}
	if got := SumItems(items); got.Cents != 7000 {
		t.Fatalf("got %d cents, want 7000", got.Cents)
	}
	if got := SumItems(nil); got.Cents != 0 {
		t.Fatalf("empty sum: got %d, want 0", got.Cents)
	}
}
