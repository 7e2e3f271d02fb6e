package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinikit/notify/pkg/notification"
)

// defaultChannels is the fallback channel set used when a notification
// type has no per-category preference or the category has no explicit
// channel list.
var defaultChannels = []notification.Channel{
	notification.ChannelEmail,
	notification.ChannelInApp,
}

// Resolver answers the delivery service's preference questions: which
// channels a send should use, whether a channel is enabled, and which
// address or token the channel delivers to.
type Resolver struct {
	storage Storage
	logger  *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for the Resolver.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a preference resolver over the given storage.
func NewResolver(storage Storage, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate fetches a user's preferences, lazily creating the defaults
// when no record exists yet. A missing record is never an error.
func (r *Resolver) GetOrCreate(ctx context.Context, userID string) (*Preferences, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	prefs, err := r.storage.Get(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load preferences for user %s: %w", userID, err)
	}

	prefs = Defaults(userID)
	if err := r.storage.Create(ctx, prefs); err != nil {
		// Lost a create race: another request initialized the record first.
		if errors.Is(err, ErrAlreadyExists) {
			return r.storage.Get(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create default preferences for user %s: %w", userID, err)
	}

	r.logger.InfoContext(ctx, "created default notification preferences",
		slog.String("user_id", userID))

	return prefs, nil
}

// DefaultChannels resolves the channel list for a notification type: the
// category's explicit list when the category is enabled and configured,
// otherwise email+in-app. A disabled category yields no channels at all.
func (r *Resolver) DefaultChannels(t notification.Type, prefs *Preferences) []notification.Channel {
	setting, ok := prefs.TypeSetting(t)
	if !ok {
		return defaultChannels
	}
	if !setting.Enabled {
		return nil
	}
	if len(setting.Channels) > 0 {
		return setting.Channels
	}
	return defaultChannels
}

// ChannelEnabled reports whether the user has the channel switched on.
func (r *Resolver) ChannelEnabled(ch notification.Channel, prefs *Preferences) bool {
	return prefs.ChannelSetting(ch).Enabled
}

// RecipientAddress returns the stored address or token for the channel,
// or an empty string when nothing is configured. In-app delivery needs no
// external address; the user id itself is the destination.
func (r *Resolver) RecipientAddress(ctx context.Context, userID string, ch notification.Channel) (string, error) {
	prefs, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return "", err
	}
	if ch == notification.ChannelInApp {
		return userID, nil
	}
	return prefs.ChannelSetting(ch).Address, nil
}

// Update applies the given mutation to the user's preferences and saves
// the result. Last-write-wins: concurrent multi-device edits may clobber
// each other, which is acceptable at the expected write frequency.
func (r *Resolver) Update(ctx context.Context, userID string, mutate func(*Preferences)) (*Preferences, error) {
	prefs, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	mutate(prefs)
	prefs.UserID = userID // the mutation must not reassign ownership
	prefs.UpdatedAt = time.Now()

	if err := r.storage.Update(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to update preferences for user %s: %w", userID, err)
	}
	return prefs, nil
}

// RegisterDevice stores a push token for the user and switches the push
// channel on.
func (r *Resolver) RegisterDevice(ctx context.Context, userID, token string) error {
	if token == "" {
		return ErrMissingDeviceToken
	}
	_, err := r.Update(ctx, userID, func(p *Preferences) {
		p.Push.Enabled = true
		p.Push.Address = token
	})
	return err
}
