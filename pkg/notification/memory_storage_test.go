package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInAppRecord(id, userID string, status Status) *Notification {
	n := &Notification{
		ID:      id,
		UserID:  userID,
		Type:    TypeGeneral,
		Channel: ChannelInApp,
		Status:  status,
		Title:   "title " + id,
		Message: "message " + id,
	}
	if status == StatusSent || status == StatusDelivered {
		now := time.Now()
		n.SentAt = &now
	}
	return n
}

func TestMemoryStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	original := &Notification{
		ID:      "n1",
		UserID:  "user-1",
		Type:    TypeLabResult,
		Channel: ChannelInApp,
		Status:  StatusPending,
		Title:   "Lab results ready",
		Message: "Your blood panel results are available",
		Data:    map[string]any{"lab_order": "LO-42", "panel": "cbc"},
	}
	require.NoError(t, store.Create(ctx, original))

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, original.Title, got.Title)
	assert.Equal(t, original.Message, got.Message)
	assert.Equal(t, original.Data, got.Data)
	assert.False(t, got.CreatedAt.IsZero())

	// Mutating the returned copy must not affect stored state.
	got.Title = "changed"
	again, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Lab results ready", again.Title)
}

func TestMemoryStorage_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	assert.ErrorIs(t, store.Create(ctx, &Notification{UserID: "u"}), ErrMissingID)
	assert.ErrorIs(t, store.Create(ctx, &Notification{ID: "n"}), ErrMissingUserID)
}

func TestMemoryStorage_GetMissing(t *testing.T) {
	store := NewMemoryStorage()
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_UpdateMissing(t *testing.T) {
	store := NewMemoryStorage()
	err := store.Update(context.Background(), &Notification{ID: "ghost", UserID: "u"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_ListPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	base := time.Now()
	for i := range 5 {
		n := newInAppRecord(fmt.Sprintf("n%d", i), "user-1", StatusSent)
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Create(ctx, n))
	}

	page, err := store.List(ctx, "user-1", ListOptions{Limit: 2, Offset: 1, Channel: ChannelInApp})
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Newest first: n4, n3, n2, n1, n0 -> offset 1 gives n3, n2.
	assert.Equal(t, "n3", page[0].ID)
	assert.Equal(t, "n2", page[1].ID)
}

func TestMemoryStorage_ListUnreadOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	read := newInAppRecord("r1", "user-1", StatusSent)
	require.NoError(t, store.Create(ctx, read))

	// Mark it read through the normal mutation path.
	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.NoError(t, got.MarkRead())
	require.NoError(t, store.Update(ctx, got))

	require.NoError(t, store.Create(ctx, newInAppRecord("u1", "user-1", StatusSent)))

	unread, err := store.List(ctx, "user-1", ListOptions{OnlyUnread: true, Channel: ChannelInApp})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "u1", unread[0].ID)
}

func TestMemoryStorage_MarkAllRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	require.NoError(t, store.Create(ctx, newInAppRecord("a", "user-1", StatusSent)))
	require.NoError(t, store.Create(ctx, newInAppRecord("b", "user-1", StatusDelivered)))
	// Pending in-app records are not readable and must be skipped.
	require.NoError(t, store.Create(ctx, newInAppRecord("c", "user-1", StatusPending)))
	// Other users and other channels must not be touched.
	require.NoError(t, store.Create(ctx, newInAppRecord("d", "user-2", StatusSent)))
	email := newInAppRecord("e", "user-1", StatusSent)
	email.Channel = ChannelEmail
	require.NoError(t, store.Create(ctx, email))

	modified, err := store.MarkAllRead(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), modified)

	count, err := store.CountUnread(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count) // only the pending record remains unread

	other, err := store.CountUnread(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, other)
}

func TestMemoryStorage_ListDue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	now := time.Now()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	scheduled := newInAppRecord("due", "user-1", StatusPending)
	scheduled.ScheduledFor = &past
	require.NoError(t, store.Create(ctx, scheduled))

	later := newInAppRecord("later", "user-1", StatusPending)
	later.ScheduledFor = &future
	require.NoError(t, store.Create(ctx, later))

	sent := newInAppRecord("sent", "user-1", StatusSent)
	sent.ScheduledFor = &past
	require.NoError(t, store.Create(ctx, sent))

	due, err := store.ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestMemoryStorage_ListRetryable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	retryable := newInAppRecord("retryable", "user-1", StatusFailed)
	retryable.RetryCount = 2
	require.NoError(t, store.Create(ctx, retryable))

	exhausted := newInAppRecord("exhausted", "user-1", StatusFailed)
	exhausted.RetryCount = 3
	require.NoError(t, store.Create(ctx, exhausted))

	out, err := store.ListRetryable(ctx, 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "retryable", out[0].ID)
}
