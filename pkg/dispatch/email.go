package dispatch

import (
	"context"
	"fmt"
	"regexp"

	"github.com/mrz1836/postmark"

	"github.com/clinikit/notify/pkg/notification"
)

// EmailConfig holds the Postmark credentials and sender identity.
type EmailConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN,required"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN,required"`
	SenderEmail  string `env:"SENDER_EMAIL,required"`
	ReplyToEmail string `env:"REPLY_TO_EMAIL"`
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// EmailProvider sends transactional email through Postmark.
type EmailProvider struct {
	client *postmark.Client
	config EmailConfig
}

// NewEmailProvider creates a Postmark-backed email provider. Tokens and a
// valid sender address are required so misconfiguration fails at startup
// instead of at dispatch time.
func NewEmailProvider(cfg EmailConfig) (*EmailProvider, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrInvalidProviderConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: sender email %q is not a valid address", ErrInvalidProviderConfig, cfg.SenderEmail)
	}
	if cfg.ReplyToEmail != "" && !emailRegex.MatchString(cfg.ReplyToEmail) {
		return nil, fmt.Errorf("%w: reply-to email %q is not a valid address", ErrInvalidProviderConfig, cfg.ReplyToEmail)
	}

	return &EmailProvider{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

func (p *EmailProvider) Channel() notification.Channel {
	return notification.ChannelEmail
}

func (p *EmailProvider) Send(ctx context.Context, msg Message) Result {
	if msg.To == "" {
		return Failuref("no email address configured")
	}
	if !emailRegex.MatchString(msg.To) {
		return Failuref("invalid email address %q", msg.To)
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.config.SenderEmail,
		ReplyTo:  p.config.ReplyToEmail,
		To:       msg.To,
		Subject:  msg.Title,
		TextBody: msg.Body,
		Tag:      msg.Data["tag"],
	})
	if err != nil {
		return Failure(err)
	}
	if resp.ErrorCode > 0 {
		return Failuref("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	return Success(resp.MessageID)
}
