package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuilderWritesTriggersAndBody(t *testing.T) {
	rec := httptest.NewRecorder()

	SuccessResponse("Repair recorded").
		TriggerRepairRecorded(7).
		TriggerFormReset().
		Write(rec)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `<div class="success">Repair recorded</div>`) {
		t.Fatalf("body = %s", rec.Body.String())
	}

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger not JSON: %v", err)
	}
	if _, ok := triggers["repair:recorded"]; !ok {
		t.Fatal("missing repair:recorded trigger")
	}
	if _, ok := triggers["form:reset"]; !ok {
		t.Fatal("missing form:reset trigger")
	}
}

func TestErrorResponsesEscapeHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	UnprocessableEntityError(`<script>alert("x")</script>`).Write(rec)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<script>") {
		t.Fatal("error message must be escaped")
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(rec)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Allow") != "POST" {
		t.Fatalf("Allow = %q", rec.Header().Get("Allow"))
	}
}
