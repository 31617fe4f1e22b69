package app

import (
	"context"
	"math"
	"strings"

	"github.com/themadjocker/cryo-vault-backend-api/internal/clock"
	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

type SlotStore interface {
	SlotRegistry
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BookingReader interface {
	GetBooking(ctx context.Context, id string) (domain.Booking, error)
}

// SlotService serves slot reads and records temperature telemetry.
type SlotService struct {
	slots    SlotStore
	bookings BookingReader
	ledger   LedgerAppender
	events   EventPublisher
	clock    clock.Clock
	logger   log.Logger
}

func NewSlotService(slots SlotStore, bookings BookingReader, ledger LedgerAppender, clk clock.Clock, events EventPublisher, logger log.Logger) *SlotService {
	if events == nil {
		events = nopPublisher{}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &SlotService{
		slots:    slots,
		bookings: bookings,
		ledger:   ledger,
		events:   events,
		clock:    clk,
		logger:   logger.WithName("slots"),
	}
}

func (s *SlotService) List(ctx context.Context) ([]domain.Slot, error) {
	return s.slots.List(ctx)
}

func (s *SlotService) Get(ctx context.Context, id string) (domain.Slot, error) {
	return s.slots.Get(ctx, id)
}

// RecordReading stores a temperature reading and its classification. An
// occupied slot that newly turns CRITICAL gets a TEMP_CRITICAL ledger entry
// against its active booking.
func (s *SlotService) RecordReading(ctx context.Context, slotID string, temperature float64) (domain.Slot, error) {
	var problems []string
	if strings.TrimSpace(slotID) == "" {
		problems = append(problems, "slotId is required")
	}
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		problems = append(problems, "temperature must be a finite number")
	}
	if len(problems) > 0 {
		return domain.Slot{}, domain.NewValidationError(problems...)
	}

	now := s.clock.Now()
	var (
		slot    domain.Slot
		booking *domain.Booking
	)
	err := s.slots.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.slots.GetForUpdate(txCtx, slotID)
		if err != nil {
			return err
		}
		status := domain.ClassifyTemperature(temperature, current.TargetTemp)
		if err := s.slots.UpdateTelemetry(txCtx, slotID, temperature, status); err != nil {
			return err
		}
		enteredCritical := status == domain.TempStatusCritical && current.TempStatus != domain.TempStatusCritical
		if enteredCritical && current.Status == domain.SlotStatusOccupied && current.ActiveBookingID != "" {
			b, err := s.bookings.GetBooking(txCtx, current.ActiveBookingID)
			if err != nil {
				return err
			}
			booking = &b
		}
		slot, err = s.slots.Get(txCtx, slotID)
		return err
	})
	if err != nil {
		return domain.Slot{}, err
	}

	if slot.TempStatus != domain.TempStatusNormal {
		s.logger.Warn("temperature out of range", "slotId", slot.ID, "temperature", temperature, "tempStatus", slot.TempStatus)
	}
	s.events.Publish(ctx, slotUpdated(slot, nil, nil, domain.Event{OccurredAt: now}))

	if booking != nil {
		_, err := s.ledger.Append(context.WithoutCancel(ctx), AppendInput{
			BookingID:  booking.ID,
			SlotID:     slot.ID,
			ManifestID: booking.ManifestID,
			HolderID:   booking.HolderID,
			Action:     domain.ActionTempCritical,
			SlotName:   slot.Name,
		})
		if err != nil {
			s.logger.Error(err, "ledger append failed for critical temperature", "slotId", slot.ID, "bookingId", booking.ID)
		}
	}
	return slot, nil
}
