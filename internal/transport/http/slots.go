package http

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

// SlotReader is the minimal interface needed for slot reads.
type SlotReader interface {
	List(ctx context.Context) ([]domain.Slot, error)
	Get(ctx context.Context, id string) (domain.Slot, error)
}

// TelemetryRecorder is the minimal interface needed to record readings.
type TelemetryRecorder interface {
	RecordReading(ctx context.Context, slotID string, temperature float64) (domain.Slot, error)
}

// HandleListSlots returns an HTTP handler listing every slot.
func HandleListSlots(svc SlotReader, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slots, err := svc.List(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		resp := listSlotsResponse{Slots: make([]slotResponse, 0, len(slots)), Count: len(slots)}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func HandleGetSlot(svc SlotReader, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, err := svc.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

// HandleRecordTelemetry returns an HTTP handler accepting a temperature
// reading for one slot.
func HandleRecordTelemetry(svc TelemetryRecorder, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req telemetryRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Temperature == nil {
			writeError(w, http.StatusBadRequest, codeValidation, domain.ErrValidation.Error(), "temperature is required")
			return
		}

		slot, err := svc.RecordReading(r.Context(), mux.Vars(r)["id"], *req.Temperature)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

type listSlotsResponse struct {
	Slots []slotResponse `json:"slots"`
	Count int            `json:"count"`
}

type telemetryRequest struct {
	Temperature *float64 `json:"temperature"`
}
