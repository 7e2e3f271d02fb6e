package preferences

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinikit/notify/pkg/notification"
)

func TestResolver_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(NewMemoryStorage())

	t.Run("creates defaults for unknown user", func(t *testing.T) {
		prefs, err := resolver.GetOrCreate(ctx, "user-1")
		require.NoError(t, err)

		assert.Equal(t, "user-1", prefs.UserID)
		assert.True(t, prefs.Email.Enabled)
		assert.True(t, prefs.SMS.Enabled)
		assert.True(t, prefs.InApp.Enabled)
		assert.True(t, prefs.Reminders.Enabled)
		assert.False(t, prefs.Marketing.Enabled)
		assert.Empty(t, prefs.Email.Address)
	})

	t.Run("returns existing record on second call", func(t *testing.T) {
		_, err := resolver.Update(ctx, "user-1", func(p *Preferences) {
			p.Email.Address = "pat@example.com"
		})
		require.NoError(t, err)

		prefs, err := resolver.GetOrCreate(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "pat@example.com", prefs.Email.Address)
	})

	t.Run("rejects empty user id", func(t *testing.T) {
		_, err := resolver.GetOrCreate(ctx, "")
		assert.ErrorIs(t, err, ErrMissingUserID)
	})
}

func TestResolver_DefaultChannels(t *testing.T) {
	resolver := NewResolver(NewMemoryStorage())

	tests := []struct {
		name  string
		typ   notification.Type
		prefs *Preferences
		want  []notification.Channel
	}{
		{
			name:  "no per-type preference falls back to email and in-app",
			typ:   notification.TypeGeneral,
			prefs: Defaults("u"),
			want:  []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
		},
		{
			name:  "welcome has no category either",
			typ:   notification.TypeWelcome,
			prefs: Defaults("u"),
			want:  []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
		},
		{
			name: "enabled category with explicit list wins",
			typ:  notification.TypeReminder,
			prefs: func() *Preferences {
				p := Defaults("u")
				p.Reminders.Channels = []notification.Channel{notification.ChannelSMS, notification.ChannelPush}
				return p
			}(),
			want: []notification.Channel{notification.ChannelSMS, notification.ChannelPush},
		},
		{
			name:  "enabled category without list falls back",
			typ:   notification.TypeLabResult,
			prefs: Defaults("u"),
			want:  []notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
		},
		{
			name: "disabled category yields no channels",
			typ:  notification.TypePayment,
			prefs: func() *Preferences {
				p := Defaults("u")
				p.Payment.Enabled = false
				return p
			}(),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.DefaultChannels(tt.typ, tt.prefs))
		})
	}
}

func TestResolver_ChannelEnabled(t *testing.T) {
	resolver := NewResolver(NewMemoryStorage())

	prefs := Defaults("u")
	prefs.SMS.Enabled = false

	assert.True(t, resolver.ChannelEnabled(notification.ChannelEmail, prefs))
	assert.False(t, resolver.ChannelEnabled(notification.ChannelSMS, prefs))
	assert.False(t, resolver.ChannelEnabled(notification.Channel("bogus"), prefs))
}

func TestResolver_RecipientAddress(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(NewMemoryStorage())

	_, err := resolver.Update(ctx, "user-1", func(p *Preferences) {
		p.Email.Address = "pat@example.com"
		p.SMS.Address = "+15551234567"
	})
	require.NoError(t, err)

	addr, err := resolver.RecipientAddress(ctx, "user-1", notification.ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", addr)

	// Unconfigured channel resolves to empty, not an error.
	addr, err = resolver.RecipientAddress(ctx, "user-1", notification.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Empty(t, addr)

	// In-app delivery targets the user id itself.
	addr, err = resolver.RecipientAddress(ctx, "user-1", notification.ChannelInApp)
	require.NoError(t, err)
	assert.Equal(t, "user-1", addr)

	// Unknown users get lazily created defaults with empty addresses.
	addr, err = resolver.RecipientAddress(ctx, "brand-new", notification.ChannelSMS)
	require.NoError(t, err)
	assert.Empty(t, addr)
}

func TestResolver_RegisterDevice(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(NewMemoryStorage())

	require.NoError(t, resolver.RegisterDevice(ctx, "user-1", "fcm-token-abc"))

	prefs, err := resolver.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, prefs.Push.Enabled)
	assert.Equal(t, "fcm-token-abc", prefs.Push.Address)

	assert.ErrorIs(t, resolver.RegisterDevice(ctx, "user-1", ""), ErrMissingDeviceToken)
}

func TestResolver_UpdateKeepsOwnership(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(NewMemoryStorage())

	prefs, err := resolver.Update(ctx, "user-1", func(p *Preferences) {
		p.UserID = "someone-else"
		p.QuietHours = QuietHours{Enabled: true, Start: "22:00", End: "08:00", Timezone: "Europe/Berlin"}
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", prefs.UserID)
	assert.Equal(t, "Europe/Berlin", prefs.QuietHours.Timezone)
	assert.Equal(t, "Europe/Berlin", prefs.Location().String())
}
