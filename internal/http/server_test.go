package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"officina/internal/services"
	"officina/internal/sheets"
	"officina/internal/sheets/memory"
	"officina/internal/storage"
)

func newTestServer(t *testing.T, store *memory.Store) (*httptest.Server, *Server) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	ledger := services.NewLedgerService(repo, nil)
	t.Cleanup(func() { ledger.Close() })

	srv := NewServer(":0", ledger, repo, store)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, srv
}

func postForm(t *testing.T, ts *httptest.Server, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := http.PostForm(ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func addCustomer(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp, body := postForm(t, ts, "/customers", url.Values{
		"name":         {"Alice"},
		"car_model":    {"Sedan-X"},
		"contact_info": {"555-0100"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create customer: status %d, body %s", resp.StatusCode, body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, memory.New())

	resp, body := get(t, ts, "/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}
	resp, body = get(t, ts, "/readyz")
	if resp.StatusCode != http.StatusOK || body != "ready" {
		t.Fatalf("readyz: %d %q", resp.StatusCode, body)
	}
}

func TestDashboardRenders(t *testing.T) {
	ts, _ := newTestServer(t, memory.New())

	resp, body := get(t, ts, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Workshop Ledger") {
		t.Fatalf("dashboard body missing title: %s", body[:min(len(body), 200)])
	}

	resp, _ = get(t, ts, "/no-such-page")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path: status %d, want 404", resp.StatusCode)
	}
}

func TestCreateCustomerFlow(t *testing.T) {
	ts, _ := newTestServer(t, memory.New())
	addCustomer(t, ts)

	_, listBody := get(t, ts, "/customers")
	if !strings.Contains(listBody, "Alice") || !strings.Contains(listBody, "Sedan-X") {
		t.Fatal("customer list should show the new customer")
	}

	_, pageBody := get(t, ts, "/customers/view?id=1")
	if !strings.Contains(pageBody, "Alice") {
		t.Fatal("customer page should render")
	}

	resp, body := postForm(t, ts, "/customers", url.Values{
		"name": {""}, "car_model": {"X"}, "contact_info": {"Y"},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("blank name: status %d, body %s", resp.StatusCode, body)
	}
}

func TestRepairDuplicateAdvisoryFlow(t *testing.T) {
	ts, _ := newTestServer(t, memory.New())
	addCustomer(t, ts)

	repairForm := url.Values{
		"customer_id": {"1"},
		"date":        {"2024-03-15"},
		"item_name":   {"oil change", "tire rotation"},
		"item_amount": {"50.00", "20.00"},
		"mileage":     {"12000"},
	}

	resp, body := postForm(t, ts, "/repairs", repairForm)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Repair recorded") {
		t.Fatalf("first record: status %d, body %s", resp.StatusCode, body)
	}

	// Same date again: advisory, not an error, and nothing stored yet.
	resp, body = postForm(t, ts, "/repairs", repairForm)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "already recorded") {
		t.Fatalf("advisory: status %d, body %s", resp.StatusCode, body)
	}

	// Acknowledged resubmission stores the second record.
	repairForm.Set("confirm", "1")
	resp, body = postForm(t, ts, "/repairs", repairForm)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Repair recorded") {
		t.Fatalf("confirmed record: status %d, body %s", resp.StatusCode, body)
	}

	_, pageBody := get(t, ts, "/customers/view?id=1")
	if strings.Count(pageBody, "2024-03-15") < 2 {
		t.Fatal("history should list both records on the same date")
	}
}

func TestRepairValidationErrors(t *testing.T) {
	ts, _ := newTestServer(t, memory.New())
	addCustomer(t, ts)

	cases := []struct {
		name string
		form url.Values
	}{
		{"bad amount", url.Values{
			"customer_id": {"1"}, "date": {"2024-03-15"},
			"item_name": {"oil change"}, "item_amount": {"abc"},
		}},
		{"bad date", url.Values{
			"customer_id": {"1"}, "date": {"15/03/2024"},
			"item_name": {"oil change"}, "item_amount": {"50.00"},
		}},
		{"total mismatch", url.Values{
			"customer_id": {"1"}, "date": {"2024-03-15"},
			"item_name": {"oil change"}, "item_amount": {"50.00"},
			"total": {"99.99"},
		}},
		{"no items", url.Values{
			"customer_id": {"1"}, "date": {"2024-03-15"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postForm(t, ts, "/repairs", tc.form)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("status %d, body %s", resp.StatusCode, body)
			}
		})
	}

	resp, _ := postForm(t, ts, "/repairs", url.Values{
		"customer_id": {"999"}, "date": {"2024-03-15"},
		"item_name": {"oil change"}, "item_amount": {"50.00"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("orphan repair: status %d, want 404", resp.StatusCode)
	}
}

func TestMonthlyStatsPartial(t *testing.T) {
	ts, _ := newTestServer(t, memory.New())
	addCustomer(t, ts)

	postForm(t, ts, "/repairs", url.Values{
		"customer_id": {"1"}, "date": {"2024-03-15"},
		"item_name": {"oil change"}, "item_amount": {"70.00"},
	})

	resp, body := get(t, ts, "/ui/monthly-stats?customer=1&year=2024")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats partial status %d", resp.StatusCode)
	}
	if !strings.Contains(body, "2024-03") || !strings.Contains(body, "€70,00") {
		t.Fatalf("stats partial missing march bucket: %s", body)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	ts, _ := newTestServer(t, memory.New())

	resp, body := postForm(t, ts, "/catalog/add", url.Values{"name": {"brake pads"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("catalog add: status %d, body %s", resp.StatusCode, body)
	}

	_, pageBody := get(t, ts, "/catalog")
	if !strings.Contains(pageBody, "brake pads") {
		t.Fatal("catalog page should list the item")
	}

	resp, _ = postForm(t, ts, "/catalog/replace", url.Values{"items": {"inspection\nwheel alignment\n"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatal("catalog replace failed")
	}
	_, pageBody = get(t, ts, "/catalog")
	if strings.Contains(pageBody, "brake pads") || !strings.Contains(pageBody, "wheel alignment") {
		t.Fatal("catalog replace should swap the whole list")
	}
}

func TestImportExportEndpoints(t *testing.T) {
	store := memory.New(
		sheets.CustomerRow{Name: "Bob", CarModel: "Truck-Z", ContactInfo: "555-0102"},
		sheets.CustomerRow{Name: "", CarModel: "bad", ContactInfo: "row"},
	)
	ts, _ := newTestServer(t, store)

	resp, body := postForm(t, ts, "/sync/import", url.Values{})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Imported 1 customers (1 rows skipped)") {
		t.Fatalf("import: status %d, body %s", resp.StatusCode, body)
	}

	addCustomer(t, ts)
	resp, body = postForm(t, ts, "/sync/export", url.Values{})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Exported 2 customers") {
		t.Fatalf("export: status %d, body %s", resp.StatusCode, body)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
