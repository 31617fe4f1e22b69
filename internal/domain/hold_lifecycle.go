package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

const (
	HoldEventConfirm = "confirm"
	HoldEventExpire  = "expire"
	HoldEventCancel  = "cancel"
)

// Every transition leaves PENDING; terminal states accept no events.
var holdEvents = fsm.Events{
	{Name: HoldEventConfirm, Src: []string{string(HoldStatusPending)}, Dst: string(HoldStatusConfirmed)},
	{Name: HoldEventExpire, Src: []string{string(HoldStatusPending)}, Dst: string(HoldStatusExpired)},
	{Name: HoldEventCancel, Src: []string{string(HoldStatusPending)}, Dst: string(HoldStatusCancelled)},
}

// NextHoldStatus applies event to a hold in status current and returns the
// resulting status. Events fired from a terminal status yield
// ErrReservationNotPending.
func NextHoldStatus(ctx context.Context, current HoldStatus, event string) (HoldStatus, error) {
	machine := fsm.NewFSM(string(current), holdEvents, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return current, ErrReservationNotPending
		}
		return current, fmt.Errorf("hold transition %s from %s: %w", event, current, err)
	}
	return HoldStatus(machine.Current()), nil
}
