package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinikit/notify/pkg/notification"
)

// Message is the channel-agnostic payload handed to a provider.
type Message struct {
	NotificationID string
	UserID         string
	Channel        notification.Channel
	To             string // resolved address, phone number, device token or user id
	Title          string
	Body           string
	Data           map[string]string
}

// Result is the normalized outcome of a provider call. Providers never
// return Go errors to their callers: every internal failure is folded
// into a Result with Success=false.
type Result struct {
	Success   bool
	MessageID string
	Err       string
}

// Success builds a successful result carrying the provider's message id.
func Success(messageID string) Result {
	return Result{Success: true, MessageID: messageID}
}

// Failure builds a failed result from an error.
func Failure(err error) Result {
	return Result{Err: err.Error()}
}

// Failuref builds a failed result from a format string.
func Failuref(format string, args ...any) Result {
	return Result{Err: fmt.Sprintf(format, args...)}
}

// Provider sends messages over a single channel.
type Provider interface {
	Channel() notification.Channel
	Send(ctx context.Context, msg Message) Result
}

// Dispatcher routes messages to the provider registered for their channel.
// It is the only dispatch entry point the delivery service uses; a missing
// provider or a panicking provider both surface as failed Results.
type Dispatcher struct {
	providers map[notification.Channel]Provider
	logger    *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher over the given providers.
func NewDispatcher(providers []Provider, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		providers: make(map[notification.Channel]Provider, len(providers)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, p := range providers {
		d.providers[p.Channel()] = p
	}
	return d
}

// Register adds or replaces the provider for its channel.
func (d *Dispatcher) Register(p Provider) {
	d.providers[p.Channel()] = p
}

// Send dispatches the message through the provider for its channel. It
// never returns an error and never panics: provider panics are recovered
// into failed Results so one bad channel cannot take down a bulk send.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "channel provider panicked",
				slog.String("channel", string(msg.Channel)),
				slog.String("notification_id", msg.NotificationID),
				slog.Any("panic", r))
			res = Failuref("provider panic: %v", r)
		}
	}()

	provider, ok := d.providers[msg.Channel]
	if !ok {
		return Failuref("no provider registered for channel %q", msg.Channel)
	}
	return provider.Send(ctx, msg)
}
