package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

type SlotService interface {
	SlotReader
	TelemetryRecorder
}

type ReservationService interface {
	HoldCreator
	HoldConfirmer
	HoldCanceller
}

// RouterConfig wires services into the HTTP surface. Events and Ready are
// optional.
type RouterConfig struct {
	Slots        SlotService
	Reservations ReservationService
	Ledger       LedgerReader
	Events       http.Handler
	Ready        Pinger
	Logger       log.Logger
	CORSOrigins  []string
}

// NewRouter builds the API handler with request logging and CORS applied.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	r := mux.NewRouter()
	r.NotFoundHandler = NotFoundHandler()
	r.MethodNotAllowedHandler = MethodNotAllowedHandler()

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	if cfg.Ready != nil {
		r.Handle("/ready", HandleReady(cfg.Ready)).Methods(http.MethodGet)
	}
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/slots", HandleListSlots(cfg.Slots, logger)).Methods(http.MethodGet)
	api.Handle("/slots/{id}", HandleGetSlot(cfg.Slots, logger)).Methods(http.MethodGet)
	api.Handle("/slots/{id}/telemetry", HandleRecordTelemetry(cfg.Slots, logger)).Methods(http.MethodPost)
	api.Handle("/holds", HandleCreateHold(cfg.Reservations, logger)).Methods(http.MethodPost)
	api.Handle("/holds/{id}/confirm", HandleConfirmHold(cfg.Reservations, logger)).Methods(http.MethodPost)
	api.Handle("/holds/{id}/cancel", HandleCancelHold(cfg.Reservations, logger)).Methods(http.MethodPost)
	api.Handle("/ledger", HandleRecentLedger(cfg.Ledger, logger)).Methods(http.MethodGet)
	api.Handle("/ledger/verify", HandleVerifyLedger(cfg.Ledger, logger)).Methods(http.MethodGet)
	if cfg.Events != nil {
		api.Handle("/events", cfg.Events).Methods(http.MethodGet)
	}

	return RequestLogger(CORS(cfg.CORSOrigins, r), logger.WithName("http"))
}
