package domain

import "time"

type Priority string

const (
	PriorityStandard  Priority = "STANDARD"
	PriorityPriority  Priority = "PRIORITY"
	PriorityEmergency Priority = "EMERGENCY"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityStandard, PriorityPriority, PriorityEmergency:
		return true
	}
	return false
}

// Booking represents a confirmed allocation derived from a hold.
type Booking struct {
	ID          string
	SlotID      string
	HolderID    string
	HoldID      string
	ManifestID  string
	Priority    Priority
	VaccineType string
	BatchNumber string
	Quantity    *int
	ConfirmedAt time.Time
	ReleasedAt  *time.Time
}
