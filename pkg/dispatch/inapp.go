package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/clinikit/notify/pkg/notification"
)

// inAppChannelPrefix is the Redis pub/sub channel prefix for real-time
// in-app fan-out. The full channel name is the prefix plus the user id.
const inAppChannelPrefix = "notify:inapp:"

// InAppProvider "delivers" in-app notifications. The persisted record is
// the delivery itself, so Send always succeeds. When a Redis client is
// configured, connected frontends additionally get a best-effort real-time
// publish; a publish failure never fails the dispatch.
type InAppProvider struct {
	redis  *redis.Client
	logger *slog.Logger
}

// InAppOption configures an InAppProvider.
type InAppOption func(*InAppProvider)

// WithRealtimePublisher enables Redis pub/sub fan-out for live clients.
func WithRealtimePublisher(client *redis.Client) InAppOption {
	return func(p *InAppProvider) {
		p.redis = client
	}
}

// WithInAppLogger sets the logger for the InAppProvider.
func WithInAppLogger(logger *slog.Logger) InAppOption {
	return func(p *InAppProvider) {
		p.logger = logger
	}
}

// NewInAppProvider creates the in-app provider.
func NewInAppProvider(opts ...InAppOption) *InAppProvider {
	p := &InAppProvider{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *InAppProvider) Channel() notification.Channel {
	return notification.ChannelInApp
}

// UserChannel returns the Redis pub/sub channel subscribers should listen
// on for a user's real-time notifications.
func UserChannel(userID string) string {
	return inAppChannelPrefix + userID
}

func (p *InAppProvider) Send(ctx context.Context, msg Message) Result {
	if p.redis != nil {
		payload, err := json.Marshal(map[string]string{
			"notification_id": msg.NotificationID,
			"title":           msg.Title,
			"body":            msg.Body,
		})
		if err == nil {
			err = p.redis.Publish(ctx, UserChannel(msg.UserID), payload).Err()
		}
		if err != nil {
			p.logger.WarnContext(ctx, "in-app realtime publish failed, record remains available",
				slog.String("notification_id", msg.NotificationID),
				slog.String("user_id", msg.UserID),
				slog.String("error", err.Error()))
		}
	}
	return Success(msg.NotificationID)
}
