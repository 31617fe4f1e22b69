// Package notify fans committed state changes out to push channels.
package notify

import (
	"encoding/json"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/ledger"
)

// Message is an encoded event ready for delivery.
type Message struct {
	Type    domain.EventType
	SlotID  string
	Version int64
	Body    []byte
}

type envelope struct {
	Type       domain.EventType `json:"type"`
	SlotID     string           `json:"slotId,omitempty"`
	Version    int64            `json:"version"`
	OccurredAt time.Time        `json:"occurredAt"`
	Data       any              `json:"data"`
}

type slotUpdatedData struct {
	Status        domain.SlotStatus `json:"status"`
	TempStatus    domain.TempStatus `json:"tempStatus"`
	Temperature   float64           `json:"temperature"`
	ReservationID string            `json:"reservationId,omitempty"`
	ExpiresAt     *time.Time        `json:"expiresAt,omitempty"`
	BookingID     string            `json:"bookingId,omitempty"`
	ManifestID    string            `json:"manifestId,omitempty"`
}

type ledgerAppendedData struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	BookingID    string `json:"bookingId"`
	Action       string `json:"action"`
	SlotName     string `json:"slotName"`
	PreviousHash string `json:"previousHash"`
	DataHash     string `json:"dataHash"`
	Nonce        int64  `json:"nonce"`
	Timestamp    string `json:"timestamp"`
}

type reservationExpiredData struct {
	HoldID   string `json:"holdId"`
	SlotName      string `json:"slotName"`
}

// Encode renders evt as the JSON envelope every sink delivers.
func Encode(evt domain.Event) (Message, error) {
	env := envelope{
		Type:       evt.Type,
		SlotID:     evt.SlotID,
		Version:    evt.Version,
		OccurredAt: evt.OccurredAt.UTC(),
	}

	switch evt.Type {
	case domain.EventSlotUpdated:
		data := slotUpdatedData{Status: evt.Status, TempStatus: evt.TempStatus, Temperature: evt.Temperature}
		if evt.Hold != nil {
			data.ReservationID = evt.Hold.ID
			expires := evt.Hold.ExpiresAt
			data.ExpiresAt = &expires
		}
		if evt.Booking != nil {
			data.BookingID = evt.Booking.ID
			data.ManifestID = evt.Booking.ManifestID
		}
		env.Data = data
	case domain.EventLedgerAppended:
		if e := evt.Entry; e != nil {
			env.Data = ledgerAppendedData{
				ID:           e.ID,
				Seq:          e.Seq,
				BookingID:    e.BookingID,
				Action:       e.Action,
				SlotName:     e.SlotName,
				PreviousHash: e.PreviousHash,
				DataHash:     e.DataHash,
				Nonce:        e.Nonce,
				Timestamp:    ledger.FormatTimestamp(e.Timestamp),
			}
		}
	case domain.EventReservationExpired:
		env.Data = reservationExpiredData{HoldID: evt.HoldID, SlotName: evt.SlotName}
	}

	body, err := json.Marshal(env)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: evt.Type, SlotID: evt.SlotID, Version: evt.Version, Body: body}, nil
}
