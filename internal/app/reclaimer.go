package app

import (
	"context"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
	"github.com/themadjocker/cryo-vault-backend-api/internal/metrics"
)

type HoldExpirer interface {
	ListExpiredHolds(ctx context.Context) ([]domain.Hold, error)
	Expire(ctx context.Context, holdID string) (bool, error)
}

// Reclaimer periodically expires PENDING holds whose deadline has passed.
type Reclaimer struct {
	expirer  HoldExpirer
	interval time.Duration
	logger   log.Logger
}

const defaultSweepInterval = 30 * time.Second

func NewReclaimer(expirer HoldExpirer, interval time.Duration, logger log.Logger) *Reclaimer {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Reclaimer{expirer: expirer, interval: interval, logger: logger.WithName("reclaimer")}
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reclaimer) Run(ctx context.Context) error {
	r.logger.Info("reclaimer started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reclaimer stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error(err, "expiry sweep failed")
			}
		}
	}
}

// Sweep expires every overdue hold, each in its own transaction, and returns
// how many were reclaimed. A failure on one hold does not stop the sweep.
func (r *Reclaimer) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.ReclaimerSweepDuration.Observe(time.Since(start).Seconds())
	}()

	holds, err := r.expirer.ListExpiredHolds(ctx)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, h := range holds {
		if ctx.Err() != nil {
			return reclaimed, ctx.Err()
		}
		ok, err := r.expirer.Expire(ctx, h.ID)
		if err != nil {
			metrics.ReclaimerFailures.Inc()
			r.logger.Error(err, "failed to expire hold", "holdId", h.ID, "slotId", h.SlotID)
			continue
		}
		if ok {
			reclaimed++
		}
	}
	if reclaimed > 0 {
		r.logger.Info("expired holds reclaimed", "count", reclaimed)
	}
	return reclaimed, nil
}
