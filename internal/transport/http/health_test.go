package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler_OK(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	HealthHandler(rec, req)

	res := rec.Result()
	if res.StatusCode != 200 {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}

	body := rec.Body.String()
	if body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHandleReady(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HandleReady(stubPinger{}).ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HandleReady(stubPinger{err: errors.New("refused")}).ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != 503 {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
