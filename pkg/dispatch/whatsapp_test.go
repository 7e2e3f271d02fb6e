package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinikit/notify/pkg/notification"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   string
	}{
		{"formatted local number", "(555) 123-4567", "15551234567"},
		{"dotted local number", "555.123.4567", "15551234567"},
		{"local number with leading zero", "05551234567", "15551234567"},
		{"already has plus prefix", "+445551234567", "445551234567"},
		{"double zero international prefix", "00445551234567", "445551234567"},
		{"already carries country code", "15551234567", "15551234567"},
		{"too short to be local", "12345", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.number, "1", 10))
		})
	}
}

func TestWhatsAppProvider_Send(t *testing.T) {
	t.Run("successful send", func(t *testing.T) {
		var gotBody whatsAppRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "wamid.test"}},
			})
		}))
		defer srv.Close()

		p, err := NewWhatsAppProvider(WhatsAppConfig{
			AccessToken:        "test-token",
			PhoneNumberID:      "12345",
			BaseURL:            srv.URL,
			DefaultCountryCode: "1",
			LocalNumberLength:  10,
		})
		require.NoError(t, err)

		res := p.Send(context.Background(), Message{
			Channel: notification.ChannelWhatsApp,
			To:      "(555) 123-4567",
			Title:   "Appointment reminder",
			Body:    "See you tomorrow at 10:00",
		})

		assert.True(t, res.Success)
		assert.Equal(t, "wamid.test", res.MessageID)
		assert.Equal(t, "15551234567", gotBody.To)
		assert.Equal(t, "whatsapp", gotBody.MessagingProduct)
	})

	t.Run("api error becomes failed result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "invalid token", "code": 190},
			})
		}))
		defer srv.Close()

		p, err := NewWhatsAppProvider(WhatsAppConfig{
			AccessToken:   "bad",
			PhoneNumberID: "12345",
			BaseURL:       srv.URL,
		})
		require.NoError(t, err)

		res := p.Send(context.Background(), Message{To: "15551234567", Body: "hi"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Err, "invalid token")
	})

	t.Run("empty number fails without calling the api", func(t *testing.T) {
		p, err := NewWhatsAppProvider(WhatsAppConfig{AccessToken: "t", PhoneNumberID: "id"})
		require.NoError(t, err)

		res := p.Send(context.Background(), Message{Body: "hi"})
		assert.False(t, res.Success)
		assert.Contains(t, res.Err, "no whatsapp number")
	})

	t.Run("missing credentials rejected at construction", func(t *testing.T) {
		_, err := NewWhatsAppProvider(WhatsAppConfig{})
		assert.ErrorIs(t, err, ErrInvalidProviderConfig)
	})
}
