package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

func TestNewRouter_Routes(t *testing.T) {
	t.Parallel()

	reservations := &stubReservationService{hold: domain.Hold{ID: "h1"}}
	slots := &stubSlotService{}
	ledgerSvc := &stubLedgerService{}
	router := NewRouter(RouterConfig{
		Slots:        slots,
		Reservations: reservations,
		Ledger:       ledgerSvc,
		CORSOrigins:  []string{"http://localhost:5173"},
	})

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{method: http.MethodGet, path: "/health", status: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/slots", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/slots/s1", status: http.StatusOK},
		{method: http.MethodPost, path: "/api/slots/s1/telemetry", body: `{"temperature":-70}`, status: http.StatusOK},
		{method: http.MethodPost, path: "/api/holds", body: `{"slotId":"s1","userId":"U1"}`, status: http.StatusCreated},
		{method: http.MethodPost, path: "/api/holds/h1/confirm", body: `{"manifestId":"M"}`, status: http.StatusCreated},
		{method: http.MethodPost, path: "/api/holds/h1/cancel", status: http.StatusNoContent},
		{method: http.MethodGet, path: "/api/ledger?limit=5", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/ledger/verify", status: http.StatusOK},
		{method: http.MethodGet, path: "/api/holds", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/api/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != tt.status {
			t.Fatalf("%s %s: expected status %d, got %d (%s)", tt.method, tt.path, tt.status, rec.Code, rec.Body.String())
		}
	}

	if reservations.cancelled != "h1" {
		t.Fatalf("expected path variable routed to cancel, got %q", reservations.cancelled)
	}
	if slots.recordedSlot != "s1" {
		t.Fatalf("expected path variable routed to telemetry, got %q", slots.recordedSlot)
	}
	if ledgerSvc.limit != 5 {
		t.Fatalf("expected limit 5, got %d", ledgerSvc.limit)
	}
}
