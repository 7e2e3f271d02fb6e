package reminder

import "errors"

var (
	// ErrNotFound is returned when an appointment or booking does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrSenderNil is returned when a scheduler is created without a sender.
	ErrSenderNil = errors.New("sender cannot be nil")

	// ErrResolverNil is returned when a scheduler is created without a
	// preference resolver.
	ErrResolverNil = errors.New("preference resolver cannot be nil")

	// ErrUnknownWindow is returned for a window the sweeps do not know.
	ErrUnknownWindow = errors.New("unknown reminder window")
)
