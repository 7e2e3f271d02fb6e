package dispatch

import (
	"context"
	"fmt"

	"github.com/kavenegar/kavenegar-go"

	"github.com/clinikit/notify/pkg/notification"
)

// SMSConfig holds the Kavenegar credentials and sender line.
type SMSConfig struct {
	APIKey string `env:"SMS_API_KEY,required"`
	Sender string `env:"SMS_SENDER"`
}

// SMSProvider sends text messages through the Kavenegar gateway.
type SMSProvider struct {
	api    *kavenegar.Kavenegar
	sender string
}

// NewSMSProvider creates a Kavenegar-backed SMS provider.
func NewSMSProvider(cfg SMSConfig) (*SMSProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: sms api key is required", ErrInvalidProviderConfig)
	}
	return &SMSProvider{
		api:    kavenegar.New(cfg.APIKey),
		sender: cfg.Sender,
	}, nil
}

func (p *SMSProvider) Channel() notification.Channel {
	return notification.ChannelSMS
}

func (p *SMSProvider) Send(ctx context.Context, msg Message) Result {
	if msg.To == "" {
		return Failuref("no phone number configured")
	}

	body := msg.Body
	if msg.Title != "" {
		body = msg.Title + "\n" + msg.Body
	}

	res, err := p.api.Message.Send(p.sender, []string{msg.To}, body, nil)
	if err != nil {
		switch err := err.(type) {
		case *kavenegar.APIError:
			return Failuref("sms gateway api error: %v", err)
		case *kavenegar.HTTPError:
			return Failuref("sms gateway http error: %v", err)
		default:
			return Failure(err)
		}
	}
	if len(res) == 0 {
		return Failuref("sms gateway returned no delivery entries")
	}
	return Success(fmt.Sprintf("%d", res[0].MessageID))
}
