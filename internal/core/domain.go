package core

import (
	"errors"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// MinRepairYear is the oldest year a repair may be recorded for.
const MinRepairYear = 1900

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Customer struct {
		ID          int64
		Name        string
		CarModel    string
		ContactInfo string
	}

	// Repair is one ledger entry. Amount is denormalized: it is the sum
	// of the item amounts at save time and is not recomputed on read.
	Repair struct {
		ID         int64
		CustomerID int64
		Date       Date
		Items      []RepairItem
		Amount     Money
		Mileage    *int64 // nil means unknown, not zero

		// ItemsOpaque is set when the stored blob could not be parsed
		// and Items holds the single recovered fallback line.
		ItemsOpaque bool
	}

	RepairItem struct {
		Name   string
		Amount Money
	}
)

var (
	ErrNotFound = errors.New("not found")

	ErrEmptyName     = errors.New("empty customer name")
	ErrEmptyCarModel = errors.New("empty car model")
	ErrEmptyContact  = errors.New("empty contact info")

	ErrInvalidDate     = errors.New("invalid date")
	ErrDateOutOfRange  = errors.New("date out of range")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeMileage = errors.New("negative mileage")
	ErrNoItems         = errors.New("repair has no items")
	ErrEmptyItemName   = errors.New("empty item name")

	// ErrItemTotalMismatch is returned when a caller-supplied total does
	// not equal the sum of the item amounts at save time.
	ErrItemTotalMismatch = errors.New("total does not match item amounts")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string and checks the year range
// against now. The upper bound follows the ledger rule that a repair
// cannot be dated in a future year.
func ParseDate(s string, now time.Time) (Date, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	d := Date{Time: t}
	if d.Year() < MinRepairYear || d.Year() > now.Year() {
		return Date{}, ErrDateOutOfRange
	}
	return d, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Validate(now time.Time) error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	if d.Year() < MinRepairYear || d.Year() > now.Year() {
		return ErrDateOutOfRange
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.CarModel) == "" {
		return ErrEmptyCarModel
	}
	if strings.TrimSpace(c.ContactInfo) == "" {
		return ErrEmptyContact
	}
	return nil
}

func (i RepairItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyItemName
	}
	return i.Amount.Validate()
}

// Validate checks the repair against the write-time invariants. The
// caller supplies now so that a whole batch shares one reference time.
func (r Repair) Validate(now time.Time) error {
	if err := r.Date.Validate(now); err != nil {
		return err
	}
	if len(r.Items) == 0 {
		return ErrNoItems
	}
	for _, it := range r.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	if r.Mileage != nil && *r.Mileage < 0 {
		return ErrNegativeMileage
	}
	return nil
}

// SumItems returns the total of the item amounts. The stored record
// amount must equal this at save time.
func SumItems(items []RepairItem) Money {
	var cents int64
	for _, it := range items {
		cents += it.Amount.Cents
	}
	return Money{Cents: cents}
}
