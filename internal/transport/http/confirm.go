package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/themadjocker/cryo-vault-backend-api/internal/app"
	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

// HoldConfirmer is the minimal interface needed to confirm a hold.
type HoldConfirmer interface {
	Confirm(ctx context.Context, in app.ConfirmInput) (app.ConfirmResult, error)
}

// HandleConfirmHold returns an HTTP handler that turns a hold into a booking.
func HandleConfirmHold(svc HoldConfirmer, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmHoldRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		res, err := svc.Confirm(r.Context(), app.ConfirmInput{
			HoldID:      mux.Vars(r)["id"],
			ManifestID:  req.ManifestID,
			Priority:    domain.Priority(req.Priority),
			VaccineType: req.VaccineType,
			BatchNumber: req.BatchNumber,
			Quantity:    req.Quantity,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, confirmHoldResponse{
			Booking:     toBookingResponse(&res.Booking),
			LedgerEntry: toLedgerEntryResponse(res.LedgerEntry),
		})
	}
}

type confirmHoldRequest struct {
	ManifestID  string `json:"manifestId"`
	Priority    string `json:"priority"`
	VaccineType string `json:"vaccineType"`
	BatchNumber string `json:"batchNumber"`
	Quantity    *int   `json:"quantity"`
}

// LedgerEntry is null when the audit append failed after the booking committed.
type confirmHoldResponse struct {
	Booking     *bookingResponse     `json:"booking"`
	LedgerEntry *ledgerEntryResponse `json:"ledgerEntry"`
}
