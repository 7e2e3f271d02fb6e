package dispatch

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/clinikit/notify/pkg/notification"
)

// PushConfig holds the Firebase service account used for FCM delivery.
type PushConfig struct {
	CredentialsFile string `env:"FCM_CREDENTIALS_FILE,required"`
}

// pushSender is the slice of the FCM client the provider needs. Kept as an
// interface so tests can run without Firebase credentials.
type pushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushProvider sends mobile push notifications through Firebase Cloud
// Messaging.
type PushProvider struct {
	client pushSender
}

// NewPushProvider initializes the Firebase app and messaging client.
func NewPushProvider(ctx context.Context, cfg PushConfig) (*PushProvider, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("%w: fcm credentials file is required", ErrInvalidProviderConfig)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create fcm messaging client: %w", err)
	}
	return &PushProvider{client: client}, nil
}

func (p *PushProvider) Channel() notification.Channel {
	return notification.ChannelPush
}

func (p *PushProvider) Send(ctx context.Context, msg Message) Result {
	if msg.To == "" {
		return Failuref("no device token registered")
	}

	messageID, err := p.client.Send(ctx, &messaging.Message{
		Token: msg.To,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	})
	if err != nil {
		return Failure(err)
	}
	return Success(messageID)
}
