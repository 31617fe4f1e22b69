package domain

import (
	"errors"
	"strings"
)

var (
	ErrSlotNotFound          = errors.New("slot not found")
	ErrSlotNotAvailable      = errors.New("slot not available")
	ErrSlotAlreadyReserved   = errors.New("slot already reserved")
	ErrReservationNotFound   = errors.New("reservation not found")
	ErrReservationNotPending = errors.New("reservation not pending")
	ErrReservationExpired    = errors.New("reservation expired")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrValidation            = errors.New("validation error")
	ErrLedgerTailConflict    = errors.New("ledger tail already extended")
)

// ValidationError reports malformed input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []string
}

// NewValidationError builds a ValidationError for the given field problems.
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
