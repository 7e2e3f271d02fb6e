package preferences

import (
	"time"

	"github.com/clinikit/notify/pkg/notification"
)

// ChannelSetting is the per-channel toggle plus the address or token the
// channel delivers to. An empty address means the channel cannot dispatch
// even when enabled.
type ChannelSetting struct {
	Enabled bool   `json:"enabled" bson:"enabled"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
}

// TypeSetting is the per-category toggle with an explicit channel list.
// An empty channel list falls back to the engine default of email+in-app.
type TypeSetting struct {
	Enabled  bool                   `json:"enabled" bson:"enabled"`
	Channels []notification.Channel `json:"channels,omitempty" bson:"channels,omitempty"`
}

// QuietHours is a do-not-disturb window in the user's local time. The
// dispatch path does not enforce it; the reminder sweeps use the timezone
// for message localization. Enforcement is an extension point.
type QuietHours struct {
	Enabled  bool   `json:"enabled" bson:"enabled"`
	Start    string `json:"start,omitempty" bson:"start,omitempty"` // "22:00"
	End      string `json:"end,omitempty" bson:"end,omitempty"`     // "08:00"
	Timezone string `json:"timezone,omitempty" bson:"timezone,omitempty"`
}

// Preferences holds one user's notification configuration. Exactly one
// record exists per user; absence is resolved by lazy creation with
// defaults, never by erroring. Writes are last-write-wins.
type Preferences struct {
	UserID string `json:"user_id" bson:"_id"`

	Email    ChannelSetting `json:"email" bson:"email"`
	SMS      ChannelSetting `json:"sms" bson:"sms"`
	WhatsApp ChannelSetting `json:"whatsapp" bson:"whatsapp"`
	Push     ChannelSetting `json:"push" bson:"push"`
	InApp    ChannelSetting `json:"in_app" bson:"in_app"`

	Reminders           TypeSetting `json:"reminders" bson:"reminders"`
	Confirmations       TypeSetting `json:"confirmations" bson:"confirmations"`
	Cancellations       TypeSetting `json:"cancellations" bson:"cancellations"`
	ConsultationUpdates TypeSetting `json:"consultation_updates" bson:"consultation_updates"`
	LabResults          TypeSetting `json:"lab_results" bson:"lab_results"`
	Payment             TypeSetting `json:"payment" bson:"payment"`
	Marketing           TypeSetting `json:"marketing" bson:"marketing"`

	QuietHours QuietHours `json:"quiet_hours" bson:"quiet_hours"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Defaults returns the preferences record created for a user that has
// never configured anything: every channel enabled (addresses empty until
// the user provides them), every category enabled except marketing, and
// no explicit per-category channel lists so resolution falls back to
// email+in-app.
func Defaults(userID string) *Preferences {
	now := time.Now()
	return &Preferences{
		UserID:   userID,
		Email:    ChannelSetting{Enabled: true},
		SMS:      ChannelSetting{Enabled: true},
		WhatsApp: ChannelSetting{Enabled: true},
		Push:     ChannelSetting{Enabled: true},
		InApp:    ChannelSetting{Enabled: true},

		Reminders:           TypeSetting{Enabled: true},
		Confirmations:       TypeSetting{Enabled: true},
		Cancellations:       TypeSetting{Enabled: true},
		ConsultationUpdates: TypeSetting{Enabled: true},
		LabResults:          TypeSetting{Enabled: true},
		Payment:             TypeSetting{Enabled: true},
		Marketing:           TypeSetting{Enabled: false},

		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChannelSetting returns the setting for the given channel.
func (p *Preferences) ChannelSetting(ch notification.Channel) ChannelSetting {
	switch ch {
	case notification.ChannelEmail:
		return p.Email
	case notification.ChannelSMS:
		return p.SMS
	case notification.ChannelWhatsApp:
		return p.WhatsApp
	case notification.ChannelPush:
		return p.Push
	case notification.ChannelInApp:
		return p.InApp
	default:
		return ChannelSetting{}
	}
}

// TypeSetting returns the category setting for the given notification type
// and whether the type has a dedicated category at all. Welcome and general
// notifications have no per-type preference and always use the defaults.
func (p *Preferences) TypeSetting(t notification.Type) (TypeSetting, bool) {
	switch t {
	case notification.TypeReminder:
		return p.Reminders, true
	case notification.TypeConfirmation:
		return p.Confirmations, true
	case notification.TypeCancellation:
		return p.Cancellations, true
	case notification.TypeConsultationUpdate:
		return p.ConsultationUpdates, true
	case notification.TypeLabResult:
		return p.LabResults, true
	case notification.TypePayment:
		return p.Payment, true
	default:
		return TypeSetting{}, false
	}
}

// Location resolves the user's timezone, falling back to UTC when unset
// or unparseable.
func (p *Preferences) Location() *time.Location {
	if p.QuietHours.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.QuietHours.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
