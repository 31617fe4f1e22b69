package domain

import "time"

type EventType string

const (
	EventSlotUpdated        EventType = "slot_updated"
	EventLedgerAppended     EventType = "ledger_appended"
	EventReservationExpired EventType = "reservation_expired"
)

// Event is a change notification handed to the notification sink after commit.
type Event struct {
	Type       EventType
	SlotID     string
	OccurredAt time.Time

	// slot_updated
	Status      SlotStatus
	Version     int64
	TempStatus  TempStatus
	Temperature float64
	Hold        *Hold
	Booking     *Booking

	// ledger_appended
	Entry *LedgerEntry

	// reservation_expired
	HoldID   string
	SlotName string
}
