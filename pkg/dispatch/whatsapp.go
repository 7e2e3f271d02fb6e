package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clinikit/notify/pkg/notification"
)

// WhatsAppConfig holds the Meta Cloud API credentials and the phone
// normalization rules for the deployment's market.
type WhatsAppConfig struct {
	AccessToken        string        `env:"WHATSAPP_ACCESS_TOKEN,required"`
	PhoneNumberID      string        `env:"WHATSAPP_PHONE_NUMBER_ID,required"`
	BaseURL            string        `env:"WHATSAPP_BASE_URL" envDefault:"https://graph.facebook.com/v19.0"`
	DefaultCountryCode string        `env:"WHATSAPP_DEFAULT_COUNTRY_CODE" envDefault:"1"`
	LocalNumberLength  int           `env:"WHATSAPP_LOCAL_NUMBER_LENGTH" envDefault:"10"`
	RequestTimeout     time.Duration `env:"WHATSAPP_REQUEST_TIMEOUT" envDefault:"10s"`
}

// WhatsAppProvider sends text messages through the Meta WhatsApp Cloud API.
type WhatsAppProvider struct {
	config WhatsAppConfig
	client *http.Client
}

// NewWhatsAppProvider creates a WhatsApp provider for the Meta Cloud API.
func NewWhatsAppProvider(cfg WhatsAppConfig) (*WhatsAppProvider, error) {
	if cfg.AccessToken == "" || cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("%w: whatsapp access token and phone number id are required", ErrInvalidProviderConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v19.0"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &WhatsAppProvider{
		config: cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

func (p *WhatsAppProvider) Channel() notification.Channel {
	return notification.ChannelWhatsApp
}

type whatsAppRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (p *WhatsAppProvider) Send(ctx context.Context, msg Message) Result {
	if msg.To == "" {
		return Failuref("no whatsapp number configured")
	}

	to := NormalizePhone(msg.To, p.config.DefaultCountryCode, p.config.LocalNumberLength)

	body := msg.Body
	if msg.Title != "" {
		body = "*" + msg.Title + "*\n" + msg.Body
	}

	payload, err := json.Marshal(whatsAppRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsAppText{Body: body},
	})
	if err != nil {
		return Failure(err)
	}

	url := fmt.Sprintf("%s/%s/messages", strings.TrimRight(p.config.BaseURL, "/"), p.config.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Failure(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Failure(err)
	}
	defer resp.Body.Close()

	var decoded whatsAppResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Failuref("whatsapp api returned unreadable response: %v", err)
	}
	if decoded.Error != nil {
		return Failuref("whatsapp api error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || len(decoded.Messages) == 0 {
		return Failuref("whatsapp api returned status %d", resp.StatusCode)
	}
	return Success(decoded.Messages[0].ID)
}

// NormalizePhone strips formatting characters from a phone number and
// prepends the default country code when the number has the expected local
// length and carries no international prefix. Numbers already written with
// a "+" or "00" prefix are kept as-is (minus the prefix markers).
func NormalizePhone(number, countryCode string, localLength int) string {
	trimmed := strings.TrimSpace(number)

	international := strings.HasPrefix(trimmed, "+")
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, trimmed)

	if international {
		return digits
	}
	if strings.HasPrefix(digits, "00") {
		return strings.TrimPrefix(digits, "00")
	}

	// Local convention: a leading zero replaces the country code.
	if strings.HasPrefix(digits, "0") && len(digits) == localLength+1 {
		return countryCode + digits[1:]
	}
	if len(digits) == localLength && !strings.HasPrefix(digits, countryCode) {
		return countryCode + digits
	}
	return digits
}
