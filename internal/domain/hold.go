package domain

import "time"

type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "PENDING"
	HoldStatusConfirmed HoldStatus = "CONFIRMED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
	HoldStatusCancelled HoldStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are possible.
func (s HoldStatus) Terminal() bool {
	return s == HoldStatusConfirmed || s == HoldStatusExpired || s == HoldStatusCancelled
}

// Hold is a time-bounded exclusive claim on a slot.
type Hold struct {
	ID        string
	SlotID    string
	HolderID  string
	Status    HoldStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the hold's deadline has passed at now.
func (h Hold) ExpiredAt(now time.Time) bool {
	return now.After(h.ExpiresAt)
}
