package domain

import "time"

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "AVAILABLE"
	SlotStatusReserved  SlotStatus = "RESERVED"
	SlotStatusOccupied  SlotStatus = "OCCUPIED"
)

type TempStatus string

const (
	TempStatusNormal   TempStatus = "NORMAL"
	TempStatusWarning  TempStatus = "WARNING"
	TempStatusCritical TempStatus = "CRITICAL"
)

const (
	warningDelta  = 2.0
	criticalDelta = 5.0
)

// ClassifyTemperature grades a reading against the slot's target temperature.
func ClassifyTemperature(reading, target float64) TempStatus {
	switch {
	case reading > target+criticalDelta:
		return TempStatusCritical
	case reading > target+warningDelta:
		return TempStatusWarning
	default:
		return TempStatusNormal
	}
}

// Slot is a physical freezer unit. ActiveHold and ActiveBooking are only
// populated by listing reads; the registry tracks them by ID.
type Slot struct {
	ID              string
	Name            string
	Status          SlotStatus
	Temperature     float64
	TargetTemp      float64
	TempStatus      TempStatus
	LastMaintenance *time.Time
	ActiveHoldID    string
	ActiveBookingID string
	Version         int64

	ActiveHold    *Hold
	ActiveBooking *Booking
}
