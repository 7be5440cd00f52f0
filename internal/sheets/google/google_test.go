package google

import (
	"context"
	"strings"
	"testing"
)

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), "   ", "Customers"); err == nil {
		t.Fatal("expected error for blank spreadsheet id")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-id", "")
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Fatalf("got %v, want missing-credentials error", err)
	}
}

func TestCellStringPadsShortRows(t *testing.T) {
	row := []any{" Alice ", "Sedan-X"}
	if got := cellString(row, 0); got != "Alice" {
		t.Fatalf("col 0 = %q", got)
	}
	if got := cellString(row, 2); got != "" {
		t.Fatalf("col 2 = %q, want empty for short row", got)
	}
}
