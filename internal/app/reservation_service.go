package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/clock"
	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
	"github.com/themadjocker/cryo-vault-backend-api/internal/metrics"
)

// SlotRegistry is the authoritative store of slot state. Every mutation bumps
// the slot version.
type SlotRegistry interface {
	Get(ctx context.Context, id string) (domain.Slot, error)
	GetForUpdate(ctx context.Context, id string) (domain.Slot, error)
	List(ctx context.Context) ([]domain.Slot, error)
	SetStatus(ctx context.Context, id string, status domain.SlotStatus) error
	AttachHold(ctx context.Context, id, holdID string) error
	DetachHold(ctx context.Context, id string) error
	AttachBooking(ctx context.Context, id, bookingID string) error
	UpdateTelemetry(ctx context.Context, id string, temperature float64, status domain.TempStatus) error
}

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateHold(ctx context.Context, hold domain.Hold) error
	GetHold(ctx context.Context, id string) (domain.Hold, error)
	GetHoldForUpdate(ctx context.Context, id string) (domain.Hold, error)
	FindPendingHold(ctx context.Context, slotID string) (*domain.Hold, error)
	UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus) error
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error)
	CreateBooking(ctx context.Context, booking domain.Booking) error
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
}

// LedgerAppender records audit entries. Appends happen outside the
// reservation transaction.
type LedgerAppender interface {
	Append(ctx context.Context, in AppendInput) (domain.LedgerEntry, error)
}

// ReservationService drives the hold lifecycle: hold, confirm, cancel and expire.
type ReservationService struct {
	repo    ReservationRepository
	slots   SlotRegistry
	ledger  LedgerAppender
	events  EventPublisher
	clock   clock.Clock
	logger  log.Logger
	holdTTL time.Duration
}

const (
	defaultHoldTTL     = 120 * time.Second
	expiredBatchLimit  = 500
	ledgerAppendFailed = "ledger append failed after booking commit"
)

func NewReservationService(repo ReservationRepository, slots SlotRegistry, ledger LedgerAppender, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		repo:    repo,
		slots:   slots,
		ledger:  ledger,
		events:  nopPublisher{},
		clock:   clk,
		logger:  log.NewNop(),
		holdTTL: defaultHoldTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationOption func(*ReservationService)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.holdTTL = d
		}
	}
}

func WithEventPublisher(p EventPublisher) ReservationOption {
	return func(s *ReservationService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithLogger(l log.Logger) ReservationOption {
	return func(s *ReservationService) {
		if l != nil {
			s.logger = l.WithName("reservations")
		}
	}
}

type HoldInput struct {
	SlotID   string
	HolderID string
}

// Hold grants a PENDING hold on an AVAILABLE slot. At most one caller wins
// per slot; the slot row lock serialises competing requests.
func (s *ReservationService) Hold(ctx context.Context, in HoldInput) (domain.Hold, error) {
	var missing []string
	if strings.TrimSpace(in.SlotID) == "" {
		missing = append(missing, "slotId is required")
	}
	if strings.TrimSpace(in.HolderID) == "" {
		missing = append(missing, "userId is required")
	}
	if len(missing) > 0 {
		return domain.Hold{}, domain.NewValidationError(missing...)
	}

	now := s.clock.Now()
	var (
		hold domain.Hold
		slot domain.Slot
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.slots.GetForUpdate(txCtx, in.SlotID)
		if err != nil {
			return err
		}
		if current.Status != domain.SlotStatusAvailable {
			return domain.ErrSlotNotAvailable
		}
		if pending, err := s.repo.FindPendingHold(txCtx, in.SlotID); err != nil {
			return err
		} else if pending != nil {
			return domain.ErrSlotAlreadyReserved
		}

		hold = domain.Hold{
			ID:        newUUID(),
			SlotID:    in.SlotID,
			HolderID:  in.HolderID,
			Status:    domain.HoldStatusPending,
			ExpiresAt: now.Add(s.holdTTL),
			CreatedAt: now,
		}
		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}
		if err := s.slots.SetStatus(txCtx, in.SlotID, domain.SlotStatusReserved); err != nil {
			return err
		}
		if err := s.slots.AttachHold(txCtx, in.SlotID, hold.ID); err != nil {
			return err
		}
		slot, err = s.slots.Get(txCtx, in.SlotID)
		return err
	})
	if err != nil {
		metrics.HoldsRejected.WithLabelValues(holdRejectReason(err)).Inc()
		return domain.Hold{}, err
	}

	metrics.HoldsCreated.Inc()
	s.logger.Info("hold granted", "holdId", hold.ID, "slotId", hold.SlotID, "userId", hold.HolderID, "expiresAt", hold.ExpiresAt)
	s.events.Publish(ctx, slotUpdated(slot, &hold, nil, domain.Event{OccurredAt: now}))
	return hold, nil
}

type ConfirmInput struct {
	HoldID      string
	ManifestID  string
	Priority    domain.Priority
	VaccineType string
	BatchNumber string
	Quantity    *int
}

func (in *ConfirmInput) validate() error {
	var problems []string
	if strings.TrimSpace(in.HoldID) == "" {
		problems = append(problems, "holdId is required")
	}
	if strings.TrimSpace(in.ManifestID) == "" {
		problems = append(problems, "manifestId is required")
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityStandard
	} else if !in.Priority.Valid() {
		problems = append(problems, "priority must be one of STANDARD, PRIORITY, EMERGENCY")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		problems = append(problems, "quantity must be positive")
	}
	if len(problems) > 0 {
		return domain.NewValidationError(problems...)
	}
	return nil
}

// ConfirmResult carries the booking and, when the audit append succeeded,
// the ledger entry recorded for it.
type ConfirmResult struct {
	Booking     domain.Booking
	LedgerEntry *domain.LedgerEntry
}

// Confirm converts a PENDING, unexpired hold into a booking and occupies the
// slot. A hold found past its deadline is expired in the same transaction
// and ErrReservationExpired is returned once that expiry has committed.
func (s *ReservationService) Confirm(ctx context.Context, in ConfirmInput) (ConfirmResult, error) {
	if err := in.validate(); err != nil {
		return ConfirmResult{}, err
	}

	now := s.clock.Now()
	var (
		booking domain.Booking
		hold    domain.Hold
		slot    domain.Slot
		expired bool
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		hold, slot, err = s.lockHold(txCtx, in.HoldID)
		if err != nil {
			return err
		}
		if hold.Status != domain.HoldStatusPending {
			return domain.ErrReservationNotPending
		}
		if hold.ExpiredAt(now) {
			hold, slot, err = s.expireLocked(txCtx, hold, slot)
			if err != nil {
				return err
			}
			expired = true
			return nil
		}

		next, err := domain.NextHoldStatus(txCtx, hold.Status, domain.HoldEventConfirm)
		if err != nil {
			return err
		}
		booking = domain.Booking{
			ID:          newUUID(),
			SlotID:      hold.SlotID,
			HolderID:    hold.HolderID,
			HoldID:      hold.ID,
			ManifestID:  in.ManifestID,
			Priority:    in.Priority,
			VaccineType: in.VaccineType,
			BatchNumber: in.BatchNumber,
			Quantity:    in.Quantity,
			ConfirmedAt: now,
		}
		if err := s.repo.CreateBooking(txCtx, booking); err != nil {
			return err
		}
		if err := s.repo.UpdateHoldStatus(txCtx, hold.ID, next); err != nil {
			return err
		}
		hold.Status = next
		if err := s.slots.SetStatus(txCtx, hold.SlotID, domain.SlotStatusOccupied); err != nil {
			return err
		}
		if err := s.slots.DetachHold(txCtx, hold.SlotID); err != nil {
			return err
		}
		if err := s.slots.AttachBooking(txCtx, hold.SlotID, booking.ID); err != nil {
			return err
		}
		slot, err = s.slots.Get(txCtx, hold.SlotID)
		return err
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	if expired {
		metrics.HoldsExpired.WithLabelValues("confirm").Inc()
		s.logger.Info("hold expired at confirmation", "holdId", hold.ID, "slotId", hold.SlotID)
		s.publishExpiry(ctx, hold, slot, now)
		return ConfirmResult{}, domain.ErrReservationExpired
	}

	metrics.BookingsConfirmed.WithLabelValues(string(booking.Priority)).Inc()
	s.logger.Info("booking confirmed", "bookingId", booking.ID, "holdId", hold.ID, "slotId", booking.SlotID, "manifestId", booking.ManifestID)
	s.events.Publish(ctx, slotUpdated(slot, nil, &booking, domain.Event{OccurredAt: now}))

	result := ConfirmResult{Booking: booking}
	// The booking has committed; a client disconnect must not abort its audit entry.
	entry, err := s.ledger.Append(context.WithoutCancel(ctx), AppendInput{
		BookingID:  booking.ID,
		SlotID:     booking.SlotID,
		ManifestID: booking.ManifestID,
		HolderID:   booking.HolderID,
		Action:     domain.ActionBookingConfirmed,
		SlotName:   slot.Name,
	})
	if err != nil {
		s.logger.Error(err, ledgerAppendFailed, "bookingId", booking.ID, "slotId", booking.SlotID)
		return result, nil
	}
	result.LedgerEntry = &entry
	return result, nil
}

// Cancel releases a PENDING hold. Cancelling a hold that already left
// PENDING is a no-op.
func (s *ReservationService) Cancel(ctx context.Context, holdID string) (domain.Hold, error) {
	if strings.TrimSpace(holdID) == "" {
		return domain.Hold{}, domain.NewValidationError("holdId is required")
	}

	now := s.clock.Now()
	var (
		hold    domain.Hold
		slot    domain.Slot
		changed bool
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		hold, slot, err = s.lockHold(txCtx, holdID)
		if err != nil {
			return err
		}
		next, err := domain.NextHoldStatus(txCtx, hold.Status, domain.HoldEventCancel)
		if errors.Is(err, domain.ErrReservationNotPending) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.repo.UpdateHoldStatus(txCtx, hold.ID, next); err != nil {
			return err
		}
		hold.Status = next
		if slot, err = s.releaseSlot(txCtx, hold, slot); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}

	if changed {
		metrics.HoldsCancelled.Inc()
		s.logger.Info("hold cancelled", "holdId", hold.ID, "slotId", hold.SlotID)
		s.events.Publish(ctx, slotUpdated(slot, nil, nil, domain.Event{OccurredAt: now}))
	}
	return hold, nil
}

// Expire moves a PENDING hold past its deadline to EXPIRED and frees its
// slot. It reports false when the hold was already terminal or not yet due,
// so repeated calls for the same hold have no further effect.
func (s *ReservationService) Expire(ctx context.Context, holdID string) (bool, error) {
	now := s.clock.Now()
	var (
		hold    domain.Hold
		slot    domain.Slot
		expired bool
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		hold, slot, err = s.lockHold(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.Status != domain.HoldStatusPending || !hold.ExpiredAt(now) {
			return nil
		}
		hold, slot, err = s.expireLocked(txCtx, hold, slot)
		if err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil || !expired {
		return false, err
	}

	metrics.HoldsExpired.WithLabelValues("reclaimer").Inc()
	s.logger.Info("hold expired", "holdId", hold.ID, "slotId", hold.SlotID, "expiresAt", hold.ExpiresAt)
	s.publishExpiry(ctx, hold, slot, now)
	return true, nil
}

// ListExpiredHolds returns PENDING holds whose deadline has passed.
func (s *ReservationService) ListExpiredHolds(ctx context.Context) ([]domain.Hold, error) {
	return s.repo.ListExpiredPending(ctx, s.clock.Now(), expiredBatchLimit)
}

// lockHold locks the hold's slot row and then the hold row, in that order,
// and returns the hold as read under the lock.
func (s *ReservationService) lockHold(txCtx context.Context, holdID string) (domain.Hold, domain.Slot, error) {
	hold, err := s.repo.GetHold(txCtx, holdID)
	if err != nil {
		return domain.Hold{}, domain.Slot{}, err
	}
	slot, err := s.slots.GetForUpdate(txCtx, hold.SlotID)
	if err != nil {
		return domain.Hold{}, domain.Slot{}, err
	}
	hold, err = s.repo.GetHoldForUpdate(txCtx, holdID)
	if err != nil {
		return domain.Hold{}, domain.Slot{}, err
	}
	return hold, slot, nil
}

func (s *ReservationService) expireLocked(txCtx context.Context, hold domain.Hold, slot domain.Slot) (domain.Hold, domain.Slot, error) {
	next, err := domain.NextHoldStatus(txCtx, hold.Status, domain.HoldEventExpire)
	if err != nil {
		return hold, slot, err
	}
	if err := s.repo.UpdateHoldStatus(txCtx, hold.ID, next); err != nil {
		return hold, slot, err
	}
	hold.Status = next
	slot, err = s.releaseSlot(txCtx, hold, slot)
	return hold, slot, err
}

// releaseSlot returns the slot to AVAILABLE when it is still reserved by hold.
func (s *ReservationService) releaseSlot(txCtx context.Context, hold domain.Hold, slot domain.Slot) (domain.Slot, error) {
	if slot.Status != domain.SlotStatusReserved || slot.ActiveHoldID != hold.ID {
		return slot, nil
	}
	if err := s.slots.SetStatus(txCtx, slot.ID, domain.SlotStatusAvailable); err != nil {
		return slot, err
	}
	if err := s.slots.DetachHold(txCtx, slot.ID); err != nil {
		return slot, err
	}
	return s.slots.Get(txCtx, slot.ID)
}

func (s *ReservationService) publishExpiry(ctx context.Context, hold domain.Hold, slot domain.Slot, now time.Time) {
	s.events.Publish(ctx, slotUpdated(slot, nil, nil, domain.Event{OccurredAt: now}))
	s.events.Publish(ctx, domain.Event{
		Type:       domain.EventReservationExpired,
		SlotID:     hold.SlotID,
		OccurredAt: now,
		Version:    slot.Version,
		HoldID:     hold.ID,
		SlotName:   slot.Name,
	})
}

func holdRejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrSlotNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSlotNotAvailable):
		return "not_available"
	case errors.Is(err, domain.ErrSlotAlreadyReserved):
		return "already_reserved"
	default:
		return "error"
	}
}
