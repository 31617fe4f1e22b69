package http

import (
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/ledger"
)

type holdResponse struct {
	ID        string    `json:"id"`
	SlotID    string    `json:"slotId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func toHoldResponse(h *domain.Hold) *holdResponse {
	if h == nil {
		return nil
	}
	return &holdResponse{
		ID:        h.ID,
		SlotID:    h.SlotID,
		UserID:    h.HolderID,
		Status:    string(h.Status),
		ExpiresAt: h.ExpiresAt,
		CreatedAt: h.CreatedAt,
	}
}

type bookingResponse struct {
	ID            string     `json:"id"`
	SlotID        string     `json:"slotId"`
	UserID        string     `json:"userId"`
	ReservationID string     `json:"reservationId"`
	ManifestID    string     `json:"manifestId"`
	Priority      string     `json:"priority"`
	VaccineType   string     `json:"vaccineType,omitempty"`
	BatchNumber   string     `json:"batchNumber,omitempty"`
	Quantity      *int       `json:"quantity,omitempty"`
	ConfirmedAt   time.Time  `json:"confirmedAt"`
	ReleasedAt    *time.Time `json:"releasedAt,omitempty"`
}

func toBookingResponse(b *domain.Booking) *bookingResponse {
	if b == nil {
		return nil
	}
	return &bookingResponse{
		ID:            b.ID,
		SlotID:        b.SlotID,
		UserID:        b.HolderID,
		ReservationID: b.HoldID,
		ManifestID:    b.ManifestID,
		Priority:      string(b.Priority),
		VaccineType:   b.VaccineType,
		BatchNumber:   b.BatchNumber,
		Quantity:      b.Quantity,
		ConfirmedAt:   b.ConfirmedAt,
		ReleasedAt:    b.ReleasedAt,
	}
}

type slotResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Status          string           `json:"status"`
	Temperature     float64          `json:"temperature"`
	TargetTemp      float64          `json:"targetTemp"`
	TempStatus      string           `json:"tempStatus"`
	LastMaintenance *time.Time       `json:"lastMaintenance,omitempty"`
	Version         int64            `json:"version"`
	Reservation     *holdResponse    `json:"reservation,omitempty"`
	Booking         *bookingResponse `json:"booking,omitempty"`
}

func toSlotResponse(s domain.Slot) slotResponse {
	return slotResponse{
		ID:              s.ID,
		Name:            s.Name,
		Status:          string(s.Status),
		Temperature:     s.Temperature,
		TargetTemp:      s.TargetTemp,
		TempStatus:      string(s.TempStatus),
		LastMaintenance: s.LastMaintenance,
		Version:         s.Version,
		Reservation:     toHoldResponse(s.ActiveHold),
		Booking:         toBookingResponse(s.ActiveBooking),
	}
}

// ledgerEntryResponse renders the timestamp exactly as it was hashed so
// clients can recompute the chain.
type ledgerEntryResponse struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	BookingID    string `json:"bookingId"`
	SlotID       string `json:"slotId"`
	SlotName     string `json:"slotName"`
	ManifestID   string `json:"manifestId"`
	UserID       string `json:"userId"`
	Action       string `json:"action"`
	PreviousHash string `json:"previousHash"`
	DataHash     string `json:"dataHash"`
	Nonce        int64  `json:"nonce"`
	Timestamp    string `json:"timestamp"`
}

func toLedgerEntryResponse(e *domain.LedgerEntry) *ledgerEntryResponse {
	if e == nil {
		return nil
	}
	return &ledgerEntryResponse{
		ID:           e.ID,
		Seq:          e.Seq,
		BookingID:    e.BookingID,
		SlotID:       e.SlotID,
		SlotName:     e.SlotName,
		ManifestID:   e.ManifestID,
		UserID:       e.HolderID,
		Action:       e.Action,
		PreviousHash: e.PreviousHash,
		DataHash:     e.DataHash,
		Nonce:        e.Nonce,
		Timestamp:    ledger.FormatTimestamp(e.Timestamp),
	}
}
