package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to sent", StatusPending, StatusSent, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to read", StatusPending, StatusRead, false},
		{"pending to delivered", StatusPending, StatusDelivered, false},
		{"sent to delivered", StatusSent, StatusDelivered, true},
		{"sent to read", StatusSent, StatusRead, true},
		{"sent to pending", StatusSent, StatusPending, false},
		{"sent to failed", StatusSent, StatusFailed, false},
		{"delivered to read", StatusDelivered, StatusRead, true},
		{"failed to pending", StatusFailed, StatusPending, true},
		{"failed to sent", StatusFailed, StatusSent, false},
		{"read is terminal", StatusRead, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestNotification_MarkSent(t *testing.T) {
	n := &Notification{Status: StatusPending, ErrorMessage: "previous attempt"}

	require.NoError(t, n.MarkSent("msg-123"))
	assert.Equal(t, StatusSent, n.Status)
	assert.Equal(t, "msg-123", n.ProviderMessageID)
	assert.Empty(t, n.ErrorMessage)
	require.NotNil(t, n.SentAt)

	// Already sent, cannot send again.
	assert.ErrorIs(t, n.MarkSent("msg-456"), ErrInvalidTransition)
}

func TestNotification_MarkFailed(t *testing.T) {
	t.Run("increments retry count", func(t *testing.T) {
		n := &Notification{Status: StatusPending}
		require.NoError(t, n.MarkFailed("smtp timeout", 3))
		assert.Equal(t, StatusFailed, n.Status)
		assert.Equal(t, "smtp timeout", n.ErrorMessage)
		assert.Equal(t, 1, n.RetryCount)
	})

	t.Run("retry count never exceeds max", func(t *testing.T) {
		n := &Notification{Status: StatusPending, RetryCount: 3}
		require.NoError(t, n.MarkFailed("still broken", 3))
		assert.Equal(t, 3, n.RetryCount)
	})

	t.Run("full retry cycle stays bounded", func(t *testing.T) {
		n := &Notification{Status: StatusPending}
		for range 5 {
			require.NoError(t, n.MarkFailed("provider down", 3))
			if n.RetryCount < 3 {
				require.NoError(t, n.MarkRetrying())
			} else {
				break
			}
		}
		assert.Equal(t, 3, n.RetryCount)
		assert.Equal(t, StatusFailed, n.Status)
	})
}

func TestNotification_MarkRead(t *testing.T) {
	t.Run("in-app sent record becomes read", func(t *testing.T) {
		n := &Notification{Channel: ChannelInApp, Status: StatusSent}
		require.NoError(t, n.MarkRead())
		assert.Equal(t, StatusRead, n.Status)
		require.NotNil(t, n.ReadAt)
	})

	t.Run("in-app delivered record becomes read", func(t *testing.T) {
		n := &Notification{Channel: ChannelInApp, Status: StatusDelivered}
		require.NoError(t, n.MarkRead())
		assert.Equal(t, StatusRead, n.Status)
	})

	t.Run("email record is never readable", func(t *testing.T) {
		n := &Notification{Channel: ChannelEmail, Status: StatusSent}
		assert.ErrorIs(t, n.MarkRead(), ErrInvalidTransition)
	})

	t.Run("pending in-app record is not readable", func(t *testing.T) {
		n := &Notification{Channel: ChannelInApp, Status: StatusPending}
		assert.ErrorIs(t, n.MarkRead(), ErrInvalidTransition)
	})
}

func TestChannelValid(t *testing.T) {
	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush, ChannelInApp} {
		assert.True(t, ch.Valid(), string(ch))
	}
	assert.False(t, Channel("carrier_pigeon").Valid())
	assert.False(t, Channel("").Valid())
}
