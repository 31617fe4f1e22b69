package http

import (
	"context"
	stdhttp "net/http"
	"time"
)

// Pinger checks a dependency the service cannot run without.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports basic liveness for the service.
func HealthHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(stdhttp.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReady reports 503 while the database is unreachable.
func HandleReady(p Pinger) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeError(w, stdhttp.StatusServiceUnavailable, "not_ready", "database unreachable")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(stdhttp.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
