// Package memory is an in-process stand-in for the spreadsheet
// boundary, used in tests and when no Google credentials are set.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"officina/internal/core"
	"officina/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.CustomerRow
}

var (
	_ sheets.CustomerWriter   = (*Store)(nil)
	_ sheets.CustomerReader   = (*Store)(nil)
	_ sheets.CustomerReplacer = (*Store)(nil)
)

func New(rows ...sheets.CustomerRow) *Store {
	return &Store{rows: rows}
}

// NewFromFile seeds the store from a text file of comma-separated
// "name,car_model,contact_info" lines. Missing files yield an empty
// store.
func NewFromFile(path string) *Store {
	f, err := os.Open(path)
	if err != nil {
		return New()
	}
	defer f.Close()

	var rows []sheets.CustomerRow
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		if len(parts) != 3 {
			continue
		}
		rows = append(rows, sheets.CustomerRow{
			Name:        strings.TrimSpace(parts[0]),
			CarModel:    strings.TrimSpace(parts[1]),
			ContactInfo: strings.TrimSpace(parts[2]),
		})
	}
	return New(rows...)
}

// Append stores the customer as a row and returns a synthetic row ref.
func (s *Store) Append(_ context.Context, c core.Customer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, sheets.CustomerRow{
		Name:        c.Name,
		CarModel:    c.CarModel,
		ContactInfo: c.ContactInfo,
	})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) ListRows(_ context.Context) ([]sheets.CustomerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.CustomerRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *Store) ReplaceRows(_ context.Context, customers []core.Customer) error {
	rows := make([]sheets.CustomerRow, len(customers))
	for i, c := range customers {
		rows[i] = sheets.CustomerRow{
			Name:        c.Name,
			CarModel:    c.CarModel,
			ContactInfo: c.ContactInfo,
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	return nil
}
