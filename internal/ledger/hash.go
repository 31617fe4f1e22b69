// Package ledger implements the HMAC hash chain used for the allocation audit trail.
package ledger

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

// HashLength is the number of hex characters kept from the HMAC digest.
const HashLength = 16

// TimestampLayout is the timestamp encoding hashed into every entry. Entries
// are stored at millisecond precision so the encoding round-trips.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// EntryData holds the logical fields covered by an entry's hash.
type EntryData struct {
	BookingID  string
	SlotID     string
	ManifestID string
	HolderID   string
	Action     string
	Timestamp  time.Time
}

// DataOf extracts the hashed fields of a stored entry.
func DataOf(e domain.LedgerEntry) EntryData {
	return EntryData{
		BookingID:  e.BookingID,
		SlotID:     e.SlotID,
		ManifestID: e.ManifestID,
		HolderID:   e.HolderID,
		Action:     e.Action,
		Timestamp:  e.Timestamp,
	}
}

// Field order is part of the chain format and must not change.
type hashPayload struct {
	BookingID    string `json:"bookingId"`
	SlotID       string `json:"slotId"`
	ManifestID   string `json:"manifestId"`
	UserID       string `json:"userId"`
	Action       string `json:"action"`
	Timestamp    string `json:"timestamp"`
	PreviousHash string `json:"previousHash"`
}

// Hasher computes keyed entry hashes. The secret never leaves the process.
type Hasher struct {
	secret []byte
}

func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Truncate normalises t to the precision stored in the chain.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// FormatTimestamp renders t the way it is hashed.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Compute returns the truncated HMAC-SHA256 of data linked to previousHash.
func (h *Hasher) Compute(data EntryData, previousHash string) string {
	payload := hashPayload{
		BookingID:    data.BookingID,
		SlotID:       data.SlotID,
		ManifestID:   data.ManifestID,
		UserID:       data.HolderID,
		Action:       data.Action,
		Timestamp:    FormatTimestamp(data.Timestamp),
		PreviousHash: previousHash,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a flat struct of strings cannot fail.
	_ = enc.Encode(payload)

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return hex.EncodeToString(mac.Sum(nil))[:HashLength]
}

// Verify walks entries in chain order and reports the first broken link.
// entries must be sorted oldest first.
func (h *Hasher) Verify(entries []domain.LedgerEntry) domain.ChainReport {
	report := domain.ChainReport{Valid: true, Count: len(entries)}

	previous := domain.GenesisHash
	for _, entry := range entries {
		if entry.PreviousHash != previous {
			report.Valid = false
			report.FirstInvalidEntryID = entry.ID
			return report
		}
		if !hmac.Equal([]byte(entry.DataHash), []byte(h.Compute(DataOf(entry), previous))) {
			report.Valid = false
			report.FirstInvalidEntryID = entry.ID
			return report
		}
		previous = entry.DataHash
	}
	return report
}
