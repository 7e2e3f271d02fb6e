package preferences

import "errors"

var (
	// ErrNotFound is returned by storage when no preferences record
	// exists for the user. The resolver converts it into lazy creation.
	ErrNotFound = errors.New("preferences not found")

	// ErrAlreadyExists is returned by storage when a record is created
	// for a user that already has one.
	ErrAlreadyExists = errors.New("preferences already exist")

	// ErrMissingUserID is returned when an operation lacks a user id.
	ErrMissingUserID = errors.New("user id is required")

	// ErrMissingDeviceToken is returned by RegisterDevice for an empty token.
	ErrMissingDeviceToken = errors.New("device token is required")
)
