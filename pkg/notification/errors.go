package notification

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a notification record does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrInvalidTransition is returned when a status change violates the
	// record state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingID is returned when a record is stored without an id.
	ErrMissingID = errors.New("notification id is required")

	// ErrMissingUserID is returned when a record is stored without an owner.
	ErrMissingUserID = errors.New("user id is required")
)

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
