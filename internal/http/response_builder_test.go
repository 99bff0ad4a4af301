package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		Body([]byte("test")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerQueryCompleted("30687120066").
		Header("Cache-Control", "no-store").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{`"query:completed"`, `"cuit":"30687120066"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %q: %s", part, trigger)
		}
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("custom header not set")
	}
}

func TestAlertResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
		class   string
	}{
		{"bad request", BadRequestError("CUIT inválido."), http.StatusBadRequest, "alert-warning"},
		{"unprocessable", UnprocessableEntityError("x"), http.StatusUnprocessableEntity, "alert-warning"},
		{"not found", NotFoundError("x"), http.StatusNotFound, "alert-info"},
		{"bad gateway", BadGatewayError("Error: x"), http.StatusBadGateway, "alert-danger"},
		{"internal", InternalServerError("x"), http.StatusInternalServerError, "alert-danger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.class) {
				t.Errorf("body %q missing %s", w.Body.String(), tt.class)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestAlertResponse_Escapes(t *testing.T) {
	w := httptest.NewRecorder()
	AlertResponse(http.StatusBadGateway, "danger", "Error: <script>alert(1)</script>").Write(w)
	if strings.Contains(w.Body.String(), "<script>") {
		t.Fatalf("message not escaped: %s", w.Body.String())
	}
}
