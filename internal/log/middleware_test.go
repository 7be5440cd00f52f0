package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func bufLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, nil),
	})
}

func TestMiddlewareInjectsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := bufLogger(&buf, ComponentHTTP)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_test" })(inner))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/customers", nil))

	out := buf.String()
	if !strings.Contains(out, "request_id=req_test") {
		t.Fatalf("missing request id in %q", out)
	}
	if !strings.Contains(out, "component=http") {
		t.Fatalf("missing component tag in %q", out)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Component() != ComponentApp {
		t.Fatalf("fallback logger = %+v", logger)
	}
}

func TestLogHTTPEndEscalatesLevel(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufLogger(&buf, ComponentHTTP))
	req := httptest.NewRequest(http.MethodPost, "/repairs", nil)

	cases := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{422, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tc := range cases {
		buf.Reset()
		sl.LogHTTPEnd(context.Background(), req, tc.status, 3, "10.0.0.1")
		if !strings.Contains(buf.String(), tc.level) {
			t.Fatalf("status %d: got %q, want %s", tc.status, buf.String(), tc.level)
		}
	}
}

func TestLogRepairRecordedFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(bufLogger(&buf, ComponentLedger))

	sl.LogRepairRecorded(context.Background(), 7, "2024-03-15", 2, 7000)

	out := buf.String()
	for _, want := range []string{"customer_id=7", "repair_date=2024-03-15", "item_count=2", "amount_cents=7000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}
}
