package app

import (
	"context"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

// EventPublisher hands change events to the notification sink. Publish must
// not block on delivery; it is only called after the state change commits.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Event) {}

func slotUpdated(slot domain.Slot, hold *domain.Hold, booking *domain.Booking, at domain.Event) domain.Event {
	at.Type = domain.EventSlotUpdated
	at.SlotID = slot.ID
	at.Status = slot.Status
	at.Version = slot.Version
	at.TempStatus = slot.TempStatus
	at.Temperature = slot.Temperature
	at.Hold = hold
	at.Booking = booking
	return at
}
