package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/log"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeValidation            = "validation_error"
	codeSlotNotFound          = "slot_not_found"
	codeSlotNotAvailable      = "slot_not_available"
	codeSlotAlreadyReserved   = "slot_already_reserved"
	codeReservationNotFound   = "reservation_not_found"
	codeReservationNotPending = "reservation_not_pending"
	codeReservationExpired    = "reservation_expired"
	codeForbidden             = "forbidden"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:   msg,
		Code:    code,
		Details: details,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps domain errors to status codes. Anything unmapped is
// logged and reported as a 500 without its detail.
func writeServiceError(w http.ResponseWriter, logger log.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, codeValidation, domain.ErrValidation.Error(), verr.Fields...)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, domain.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, codeSlotNotFound, err.Error())
	case errors.Is(err, domain.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, codeSlotNotAvailable, err.Error())
	case errors.Is(err, domain.ErrSlotAlreadyReserved):
		writeError(w, http.StatusConflict, codeSlotAlreadyReserved, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotPending):
		writeError(w, http.StatusConflict, codeReservationNotPending, err.Error())
	case errors.Is(err, domain.ErrReservationExpired):
		writeError(w, http.StatusGone, codeReservationExpired, err.Error())
	default:
		if logger != nil {
			logger.Error(err, "request failed")
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
