package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/themadjocker/cryo-vault-backend-api/internal/app"
	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	Hold(ctx context.Context, in app.HoldInput) (domain.Hold, error)
}

// HoldCanceller is the minimal interface needed to cancel a hold.
type HoldCanceller interface {
	Cancel(ctx context.Context, holdID string) (domain.Hold, error)
}

// HandleCreateHold returns an HTTP handler for placing a hold on a slot.
func HandleCreateHold(svc HoldCreator, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createHoldRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		hold, err := svc.Hold(r.Context(), app.HoldInput{
			SlotID:   req.SlotID,
			HolderID: req.UserID,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, createHoldResponse{
			Reservation: toHoldResponse(&hold),
			ExpiresIn:   int(hold.ExpiresAt.Sub(hold.CreatedAt).Seconds()),
		})
	}
}

// HandleCancelHold returns an HTTP handler that releases a pending hold.
// Cancelling a hold that is no longer pending succeeds without effect.
func HandleCancelHold(svc HoldCanceller, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.Cancel(r.Context(), mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type createHoldRequest struct {
	SlotID string `json:"slotId"`
	UserID string `json:"userId"`
}

type createHoldResponse struct {
	Reservation *holdResponse `json:"reservation"`
	ExpiresIn   int           `json:"expiresIn"`
}
