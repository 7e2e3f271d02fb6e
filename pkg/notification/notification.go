package notification

import (
	"time"
)

// Channel is the delivery medium for a notification.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
	ChannelInApp    Channel = "in_app"
)

// Valid reports whether the channel is one of the known delivery media.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush, ChannelInApp:
		return true
	}
	return false
}

// Type is the semantic category of the event behind a notification.
// It drives default channel resolution in the preferences package.
type Type string

const (
	TypeReminder           Type = "reminder"
	TypeConfirmation       Type = "confirmation"
	TypeCancellation       Type = "cancellation"
	TypeConsultationUpdate Type = "consultation_update"
	TypeLabResult          Type = "lab_result"
	TypePayment            Type = "payment"
	TypeWelcome            Type = "welcome"
	TypeGeneral            Type = "general"
)

// Status is the delivery state of a notification record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusRead      Status = "read"
)

// validTransitions encodes the forward-only status machine. The only
// backward edge is failed->pending, used when a failed record is re-queued
// for another delivery attempt.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusSent, StatusFailed},
	StatusSent:      {StatusDelivered, StatusRead},
	StatusDelivered: {StatusRead},
	StatusFailed:    {StatusPending},
	StatusRead:      {},
}

// CanTransition reports whether moving from s to next is a legal status
// change. The read state is additionally restricted to in-app records by
// Notification.MarkRead.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Notification is a single per-channel delivery record. One logical send
// produces one Notification per enabled channel.
type Notification struct {
	ID               string         `json:"id" bson:"_id"`
	UserID           string         `json:"user_id" bson:"user_id"`
	ClinicID         string         `json:"clinic_id,omitempty" bson:"clinic_id,omitempty"`
	Type             Type           `json:"type" bson:"type"`
	Channel          Channel        `json:"channel" bson:"channel"`
	Status           Status         `json:"status" bson:"status"`
	Title            string         `json:"title" bson:"title"`
	Message          string         `json:"message" bson:"message"`
	Data             map[string]any `json:"data,omitempty" bson:"data,omitempty"`
	Recipient        string         `json:"recipient,omitempty" bson:"recipient,omitempty"`
	ProviderMessageID string        `json:"provider_message_id,omitempty" bson:"provider_message_id,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty" bson:"error_message,omitempty"`
	RetryCount       int            `json:"retry_count" bson:"retry_count"`
	ScheduledFor     *time.Time     `json:"scheduled_for,omitempty" bson:"scheduled_for,omitempty"`

	AppointmentID    string `json:"appointment_id,omitempty" bson:"appointment_id,omitempty"`
	ConsultationID   string `json:"consultation_id,omitempty" bson:"consultation_id,omitempty"`
	ServiceRequestID string `json:"service_request_id,omitempty" bson:"service_request_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	SentAt      *time.Time `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty" bson:"read_at,omitempty"`
}

// IsDue reports whether a pending record is eligible for dispatch at now.
// Records without a schedule are due immediately.
func (n *Notification) IsDue(now time.Time) bool {
	if n.Status != StatusPending {
		return false
	}
	return n.ScheduledFor == nil || !n.ScheduledFor.After(now)
}

// MarkSent transitions the record to sent and stores the provider message id.
func (n *Notification) MarkSent(messageID string) error {
	if !n.Status.CanTransition(StatusSent) {
		return transitionError(n.Status, StatusSent)
	}
	now := time.Now()
	n.Status = StatusSent
	n.SentAt = &now
	n.ProviderMessageID = messageID
	n.ErrorMessage = ""
	return nil
}

// MarkDelivered records a provider-reported delivery receipt.
func (n *Notification) MarkDelivered() error {
	if !n.Status.CanTransition(StatusDelivered) {
		return transitionError(n.Status, StatusDelivered)
	}
	now := time.Now()
	n.Status = StatusDelivered
	n.DeliveredAt = &now
	return nil
}

// MarkFailed transitions the record to failed and increments the retry
// counter, capped at maxRetries so the invariant retryCount<=maxRetries
// holds no matter how often a terminal record is re-dispatched.
func (n *Notification) MarkFailed(errMsg string, maxRetries int) error {
	if !n.Status.CanTransition(StatusFailed) {
		return transitionError(n.Status, StatusFailed)
	}
	n.Status = StatusFailed
	n.ErrorMessage = errMsg
	if n.RetryCount < maxRetries {
		n.RetryCount++
	}
	return nil
}

// MarkRetrying moves a failed record back to pending for another attempt.
func (n *Notification) MarkRetrying() error {
	if !n.Status.CanTransition(StatusPending) {
		return transitionError(n.Status, StatusPending)
	}
	n.Status = StatusPending
	return nil
}

// MarkRead marks an in-app record as read. Read is reachable only from
// sent or delivered, and only for the in-app channel: other channels have
// no user-facing read state.
func (n *Notification) MarkRead() error {
	if n.Channel != ChannelInApp {
		return transitionError(n.Status, StatusRead)
	}
	if !n.Status.CanTransition(StatusRead) {
		return transitionError(n.Status, StatusRead)
	}
	now := time.Now()
	n.Status = StatusRead
	n.ReadAt = &now
	return nil
}
