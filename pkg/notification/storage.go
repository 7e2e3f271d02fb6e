package notification

import (
	"context"
	"time"
)

// ListOptions filters and paginates notification listings.
type ListOptions struct {
	Limit      int     // Maximum number of records to return (0 = no limit)
	Offset     int     // Number of records to skip for pagination
	OnlyUnread bool    // When true, only return records without a read timestamp
	Channel    Channel // When set, only return records for this channel
}

// Storage handles notification record persistence. Implementations must be
// safe for concurrent use: the delivery service, the retry queue and the
// reminder sweeps all touch the store from independent goroutines.
type Storage interface {
	// Create stores a new record.
	Create(ctx context.Context, n *Notification) error

	// Get retrieves a record by id.
	Get(ctx context.Context, id string) (*Notification, error)

	// Update persists a mutated record.
	Update(ctx context.Context, n *Notification) error

	// List returns a user's records, newest first.
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)

	// CountUnread returns the number of unread in-app records for a user.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkAllRead performs a bulk read transition on the user's unread
	// in-app records and returns the number of records modified.
	MarkAllRead(ctx context.Context, userID string) (int64, error)

	// ListDue returns pending records whose schedule time has passed.
	ListDue(ctx context.Context, now time.Time) ([]Notification, error)

	// ListRetryable returns failed records that have retry budget left.
	ListRetryable(ctx context.Context, maxRetries int) ([]Notification, error)
}
