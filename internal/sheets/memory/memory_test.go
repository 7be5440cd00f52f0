package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"officina/internal/core"
	"officina/internal/sheets"
)

func TestAppendAndList(t *testing.T) {
	store := New()
	ctx := context.Background()

	ref, err := store.Append(ctx, core.Customer{Name: "Alice", CarModel: "Sedan-X", ContactInfo: "555-0100"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("ref = %q, want mem:1", ref)
	}

	rows, err := store.ListRows(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Alice" || rows[0].CarModel != "Sedan-X" {
		t.Fatalf("rows = %+v", rows)
	}

	// Mutating the returned slice must not affect the store.
	rows[0].Name = "changed"
	again, _ := store.ListRows(ctx)
	if again[0].Name != "Alice" {
		t.Fatal("ListRows should return a copy")
	}
}

func TestReplaceRows(t *testing.T) {
	store := New(sheets.CustomerRow{Name: "Stale", CarModel: "Old", ContactInfo: "none"})
	ctx := context.Background()

	err := store.ReplaceRows(ctx, []core.Customer{
		{Name: "Alice", CarModel: "Sedan-X", ContactInfo: "555-0100"},
		{Name: "Bob", CarModel: "Truck-Z", ContactInfo: "555-0102"},
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	rows, _ := store.ListRows(ctx)
	if len(rows) != 2 || rows[0].Name != "Alice" || rows[1].Name != "Bob" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.txt")
	content := "# seeded rows\nAlice,Sedan-X,555-0100\n\nbadline\nBob,Truck-Z,555-0102\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	rows, err := NewFromFile(path).ListRows(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "Alice" || rows[1].ContactInfo != "555-0102" {
		t.Fatalf("rows = %+v", rows)
	}

	empty, _ := NewFromFile(filepath.Join(t.TempDir(), "missing.txt")).ListRows(context.Background())
	if len(empty) != 0 {
		t.Fatalf("missing file should yield empty store, got %+v", empty)
	}
}
