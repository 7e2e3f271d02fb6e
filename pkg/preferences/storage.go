package preferences

import "context"

// Storage persists one preferences record per user.
type Storage interface {
	// Get retrieves the record, returning ErrNotFound when absent.
	Get(ctx context.Context, userID string) (*Preferences, error)

	// Create stores a new record, returning ErrAlreadyExists when the
	// user already has one.
	Create(ctx context.Context, prefs *Preferences) error

	// Update replaces the record with last-write-wins semantics.
	Update(ctx context.Context, prefs *Preferences) error
}
