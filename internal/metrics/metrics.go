// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HoldsCreated counts successful hold requests.
	HoldsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryovault_holds_created_total",
			Help: "Total number of slot holds granted.",
		},
	)

	// HoldsRejected counts failed hold requests by reason.
	HoldsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryovault_holds_rejected_total",
			Help: "Total number of rejected hold requests.",
		},
		[]string{"reason"}, // not_found, not_available, already_reserved, error
	)

	// BookingsConfirmed counts holds converted into bookings.
	BookingsConfirmed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryovault_bookings_confirmed_total",
			Help: "Total number of confirmed bookings.",
		},
		[]string{"priority"},
	)

	// HoldsExpired counts holds moved to EXPIRED.
	HoldsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryovault_holds_expired_total",
			Help: "Total number of holds expired.",
		},
		[]string{"source"}, // reclaimer, confirm
	)

	// HoldsCancelled counts explicit cancellations of pending holds.
	HoldsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryovault_holds_cancelled_total",
			Help: "Total number of holds cancelled by their holder.",
		},
	)

	// LedgerAppends counts ledger append attempts by result.
	LedgerAppends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryovault_ledger_appends_total",
			Help: "Total number of ledger append attempts.",
		},
		[]string{"action", "result"}, // result: success/failed
	)

	// LedgerNonceCapped counts appends whose nonce search hit the attempt cap.
	LedgerNonceCapped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryovault_ledger_nonce_capped_total",
			Help: "Total number of ledger entries stored with an unsatisfied nonce.",
		},
	)

	// ReclaimerSweepDuration observes the duration of each expiry sweep.
	ReclaimerSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cryovault_reclaimer_sweep_duration_seconds",
			Help:    "Duration of expired hold sweeps.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ReclaimerFailures counts holds the reclaimer could not expire.
	ReclaimerFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryovault_reclaimer_failures_total",
			Help: "Total number of holds the reclaimer failed to expire.",
		},
	)

	// EventsPublished counts notification deliveries by sink and result.
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryovault_events_published_total",
			Help: "Total number of event deliveries per sink.",
		},
		[]string{"sink", "result"},
	)

	// EventsDropped counts events discarded because the dispatch queue was full.
	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cryovault_events_dropped_total",
			Help: "Total number of events dropped by a full dispatch queue.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HoldsCreated,
		HoldsRejected,
		BookingsConfirmed,
		HoldsExpired,
		HoldsCancelled,
		LedgerAppends,
		LedgerNonceCapped,
		ReclaimerSweepDuration,
		ReclaimerFailures,
		EventsPublished,
		EventsDropped,
	)
}
