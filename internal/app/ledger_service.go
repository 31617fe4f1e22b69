package app

import (
	"context"
	"strings"

	"github.com/themadjocker/cryo-vault-backend-api/internal/clock"
	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/ledger"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
	"github.com/themadjocker/cryo-vault-backend-api/internal/metrics"
)

type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockTail serialises appends until the surrounding transaction ends.
	LockTail(ctx context.Context) error
	Tail(ctx context.Context) (*domain.LedgerEntry, error)
	Insert(ctx context.Context, entry domain.LedgerEntry) (int64, error)
	ListAll(ctx context.Context) ([]domain.LedgerEntry, error)
	ListRecent(ctx context.Context, limit int) ([]domain.LedgerEntry, error)
}

// LedgerService appends to and verifies the hash-chained audit ledger.
type LedgerService struct {
	repo        LedgerRepository
	hasher      *ledger.Hasher
	clock       clock.Clock
	events      EventPublisher
	logger      log.Logger
	difficulty  int
	maxAttempts int
}

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

func NewLedgerService(repo LedgerRepository, hasher *ledger.Hasher, clk clock.Clock, opts ...LedgerOption) *LedgerService {
	svc := &LedgerService{
		repo:        repo,
		hasher:      hasher,
		clock:       clk,
		events:      nopPublisher{},
		logger:      log.NewNop(),
		difficulty:  ledger.DefaultDifficulty,
		maxAttempts: ledger.DefaultMaxNonceAttempts,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type LedgerOption func(*LedgerService)

// WithDifficulty sets the number of leading hex zeros the nonce search targets.
func WithDifficulty(n int) LedgerOption {
	return func(s *LedgerService) {
		if n >= 0 {
			s.difficulty = n
		}
	}
}

func WithMaxNonceAttempts(n int) LedgerOption {
	return func(s *LedgerService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithLedgerEvents(p EventPublisher) LedgerOption {
	return func(s *LedgerService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithLedgerLogger(l log.Logger) LedgerOption {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l.WithName("ledger")
		}
	}
}

type AppendInput struct {
	BookingID  string
	SlotID     string
	ManifestID string
	HolderID   string
	Action     string
	SlotName   string
}

// Append links a new entry to the current tail of the chain.
func (s *LedgerService) Append(ctx context.Context, in AppendInput) (domain.LedgerEntry, error) {
	if strings.TrimSpace(in.Action) == "" {
		return domain.LedgerEntry{}, domain.NewValidationError("action is required")
	}

	var (
		entry  domain.LedgerEntry
		capped bool
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.LockTail(txCtx); err != nil {
			return err
		}
		tail, err := s.repo.Tail(txCtx)
		if err != nil {
			return err
		}

		previous := domain.GenesisHash
		ts := ledger.Truncate(s.clock.Now())
		if tail != nil {
			previous = tail.DataHash
			// Timestamps never run backwards along the chain.
			if ts.Before(tail.Timestamp) {
				ts = tail.Timestamp
			}
		}

		entry = domain.LedgerEntry{
			ID:           newUUID(),
			BookingID:    in.BookingID,
			SlotID:       in.SlotID,
			ManifestID:   in.ManifestID,
			HolderID:     in.HolderID,
			PreviousHash: previous,
			Action:       in.Action,
			SlotName:     in.SlotName,
			Timestamp:    ts,
		}
		entry.DataHash = s.hasher.Compute(ledger.DataOf(entry), previous)

		nonce, found := ledger.FindNonce(entry.DataHash, s.difficulty, s.maxAttempts)
		entry.Nonce = nonce
		capped = !found

		seq, err := s.repo.Insert(txCtx, entry)
		if err != nil {
			return err
		}
		entry.Seq = seq
		return nil
	})
	if err != nil {
		metrics.LedgerAppends.WithLabelValues(in.Action, "failed").Inc()
		return domain.LedgerEntry{}, err
	}

	metrics.LedgerAppends.WithLabelValues(in.Action, "success").Inc()
	if capped {
		metrics.LedgerNonceCapped.Inc()
		s.logger.Warn("nonce search hit attempt cap", "entryId", entry.ID, "nonce", entry.Nonce, "difficulty", s.difficulty)
	}
	s.logger.Info("ledger entry appended", "entryId", entry.ID, "action", entry.Action, "hash", entry.DataHash, "seq", entry.Seq)
	s.events.Publish(ctx, domain.Event{
		Type:       domain.EventLedgerAppended,
		SlotID:     entry.SlotID,
		OccurredAt: entry.Timestamp,
		Entry:      &entry,
	})
	return entry, nil
}

// Verify walks the whole chain from genesis.
func (s *LedgerService) Verify(ctx context.Context) (domain.ChainReport, error) {
	entries, err := s.repo.ListAll(ctx)
	if err != nil {
		return domain.ChainReport{}, err
	}
	report := s.hasher.Verify(entries)
	if !report.Valid {
		s.logger.Warn("ledger chain invalid", "firstInvalidEntryId", report.FirstInvalidEntryID, "count", report.Count)
	}
	return report, nil
}

// Recent returns the newest entries first. limit defaults to 10 and is
// clamped to 50.
func (s *LedgerService) Recent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return s.repo.ListRecent(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	default:
		return limit
	}
}
