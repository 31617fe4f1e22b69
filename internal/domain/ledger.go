package domain

import "time"

// GenesisHash is the previous hash of the first ledger entry.
const GenesisHash = "0000000000000000"

const (
	ActionBookingConfirmed = "BOOKING_CONFIRMED"
	ActionTempCritical     = "TEMP_CRITICAL"
)

// LedgerEntry is one immutable link of the audit chain.
type LedgerEntry struct {
	ID           string
	Seq          int64
	BookingID    string
	SlotID       string
	ManifestID   string
	HolderID     string
	PreviousHash string
	DataHash     string
	Nonce        int64
	Action       string
	SlotName     string
	Timestamp    time.Time
}

// ChainReport is the outcome of a full chain verification.
type ChainReport struct {
	Valid               bool
	Count               int
	FirstInvalidEntryID string
}
