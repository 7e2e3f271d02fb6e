package delivery

import "errors"

var (
	// ErrStorageNil is returned when a service is created without storage.
	ErrStorageNil = errors.New("notification storage cannot be nil")

	// ErrResolverNil is returned when a service is created without a
	// preference resolver.
	ErrResolverNil = errors.New("preference resolver cannot be nil")

	// ErrDispatcherNil is returned when a service is created without a
	// channel dispatcher.
	ErrDispatcherNil = errors.New("channel dispatcher cannot be nil")

	// ErrInvalidRequest is returned when a send request fails validation.
	ErrInvalidRequest = errors.New("invalid send request")

	// ErrNotOwner is returned when a read operation targets a record that
	// belongs to a different user.
	ErrNotOwner = errors.New("notification belongs to a different user")

	// ErrDispatchFailed wraps a provider failure so callers can
	// distinguish dispatch outcomes from storage errors.
	ErrDispatchFailed = errors.New("notification dispatch failed")
)
