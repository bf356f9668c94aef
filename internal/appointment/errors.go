package appointment

import (
	"errors"
	"fmt"
)

// Domain failures. All are recoverable and returned, never panicked; anything
// else coming out of the service is an infrastructure error.
var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrSlotConflict         = errors.New("slot already taken for this specialist")
	ErrSlotBeingBooked      = errors.New("slot is currently being booked, please retry")
	ErrActionNotPermitted   = errors.New("role may not perform this action")
)

// TransitionError describes a rejected lifecycle operation.
type TransitionError struct {
	Op   string
	From Status
	Err  error
}

func (e *TransitionError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s from %s: %v", e.Op, e.From, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingRequiredField, name)
}

// IsDomainError reports whether err belongs to the lifecycle taxonomy rather
// than being an infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrAppointmentNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrSlotConflict) ||
		errors.Is(err, ErrSlotBeingBooked) ||
		errors.Is(err, ErrActionNotPermitted)
}
