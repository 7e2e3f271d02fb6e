package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinikit/notify/pkg/dispatch"
	"github.com/clinikit/notify/pkg/notification"
	"github.com/clinikit/notify/pkg/preferences"
)

// Enqueuer hands a notification id to the retry queue. The delivery
// service only ever enqueues fresh jobs; retry scheduling is the queue's
// business.
type Enqueuer interface {
	Enqueue(notificationID string)
}

// Config holds the delivery tuning knobs, loadable from the environment.
type Config struct {
	MaxRetries int `env:"NOTIFY_MAX_RETRIES" envDefault:"3"`
}

// Service orchestrates the notification record lifecycle: it resolves
// preferences into channels, creates one pending record per channel,
// dispatches through the channel providers and keeps the records' status
// machine honest.
type Service struct {
	storage    notification.Storage
	resolver   *preferences.Resolver
	dispatcher *dispatch.Dispatcher
	queue      Enqueuer
	logger     *slog.Logger
	maxRetries int
}

// Option configures a Service.
type Option func(*Service)

// WithQueue wires the retry queue. Without one, failed dispatches stay
// failed until a RetryFailed sweep picks them up.
func WithQueue(q Enqueuer) Option {
	return func(s *Service) {
		s.queue = q
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxRetries sets the per-record retry budget.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithConfig applies an environment-loaded Config.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.MaxRetries >= 0 {
			s.maxRetries = cfg.MaxRetries
		}
	}
}

// New creates a delivery service over the given storage, resolver and
// dispatcher.
func New(storage notification.Storage, resolver *preferences.Resolver, dispatcher *dispatch.Dispatcher, opts ...Option) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}
	if dispatcher == nil {
		return nil, ErrDispatcherNil
	}

	s := &Service{
		storage:    storage,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AttachQueue wires the retry queue after construction. The queue needs
// the service as its processor and the service needs the queue to
// enqueue retries, so one of the two has to be attached late.
func (s *Service) AttachQueue(q Enqueuer) {
	s.queue = q
}

// SendRequest describes one logical notification to one user. Channels
// overrides preference resolution when non-empty; disabled channels are
// still skipped.
type SendRequest struct {
	UserID       string
	ClinicID     string
	Type         notification.Type
	Title        string
	Message      string
	Data         map[string]any
	Channels     []notification.Channel
	ScheduledFor *time.Time

	AppointmentID    string
	ConsultationID   string
	ServiceRequestID string
}

func (r SendRequest) validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if r.Title == "" && r.Message == "" {
		return fmt.Errorf("%w: title or message is required", ErrInvalidRequest)
	}
	if r.Type == "" {
		return fmt.Errorf("%w: notification type is required", ErrInvalidRequest)
	}
	for _, ch := range r.Channels {
		if !ch.Valid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidRequest, ch)
		}
	}
	return nil
}

// Send fans one logical notification out into one pending record per
// resolved channel and dispatches each record immediately unless it is
// scheduled for later. Dispatch failures never fail the send: the failed
// record carries the error and enters the retry path. The returned slice
// holds every record created, and is empty when preferences leave no
// channel to deliver on.
func (s *Service) Send(ctx context.Context, req SendRequest) ([]*notification.Notification, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	prefs, err := s.resolver.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve preferences: %w", err)
	}

	channels := req.Channels
	if len(channels) == 0 {
		channels = s.resolver.DefaultChannels(req.Type, prefs)
	}

	now := time.Now()
	var created []*notification.Notification
	for _, ch := range channels {
		if !s.resolver.ChannelEnabled(ch, prefs) {
			s.logger.DebugContext(ctx, "skipping disabled channel",
				slog.String("user_id", req.UserID),
				slog.String("channel", string(ch)))
			continue
		}

		recipient, err := s.resolver.RecipientAddress(ctx, req.UserID, ch)
		if err != nil {
			return created, fmt.Errorf("failed to resolve recipient for channel %s: %w", ch, err)
		}

		n := &notification.Notification{
			ID:               uuid.NewString(),
			UserID:           req.UserID,
			ClinicID:         req.ClinicID,
			Type:             req.Type,
			Channel:          ch,
			Status:           notification.StatusPending,
			Title:            req.Title,
			Message:          req.Message,
			Data:             req.Data,
			Recipient:        recipient,
			ScheduledFor:     req.ScheduledFor,
			AppointmentID:    req.AppointmentID,
			ConsultationID:   req.ConsultationID,
			ServiceRequestID: req.ServiceRequestID,
			CreatedAt:        now,
		}
		if err := s.storage.Create(ctx, n); err != nil {
			return created, fmt.Errorf("failed to create notification record: %w", err)
		}
		created = append(created, n)

		if !n.IsDue(now) {
			continue // the scheduled sweep will pick it up
		}
		if err := s.Process(ctx, n); err != nil && s.queue != nil {
			s.queue.Enqueue(n.ID)
		}
	}
	return created, nil
}

// Process dispatches one record through its channel provider and
// persists the outcome unconditionally: success moves the record to sent
// with the provider message id, failure moves it to failed with the
// error and a bumped retry count. The returned error reflects the
// dispatch outcome only; callers use it for retry accounting, not to
// fail their own operation.
func (s *Service) Process(ctx context.Context, n *notification.Notification) error {
	if n.Status == notification.StatusFailed {
		if err := n.MarkRetrying(); err != nil {
			return err
		}
	}
	if n.Status != notification.StatusPending {
		return fmt.Errorf("cannot process notification %s in status %s", n.ID, n.Status)
	}

	res := s.dispatcher.Send(ctx, dispatch.Message{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Channel:        n.Channel,
		To:             n.Recipient,
		Title:          n.Title,
		Body:           n.Message,
		Data:           stringifyData(n.Data),
	})

	if res.Success {
		if err := n.MarkSent(res.MessageID); err != nil {
			return err
		}
		if err := s.storage.Update(ctx, n); err != nil {
			return fmt.Errorf("failed to persist sent notification: %w", err)
		}
		s.logger.InfoContext(ctx, "notification sent",
			slog.String("notification_id", n.ID),
			slog.String("channel", string(n.Channel)),
			slog.String("provider_message_id", res.MessageID))
		return nil
	}

	if err := n.MarkFailed(res.Err, s.maxRetries); err != nil {
		return err
	}
	if err := s.storage.Update(ctx, n); err != nil {
		return fmt.Errorf("failed to persist failed notification: %w", err)
	}
	s.logger.WarnContext(ctx, "notification dispatch failed",
		slog.String("notification_id", n.ID),
		slog.String("channel", string(n.Channel)),
		slog.Int("retry_count", n.RetryCount),
		slog.String("error", res.Err))
	return fmt.Errorf("%w: %s", ErrDispatchFailed, res.Err)
}

// ProcessByID loads a record and dispatches it. The retry queue drives
// this entry point.
func (s *Service) ProcessByID(ctx context.Context, id string) error {
	n, err := s.storage.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load notification %s: %w", id, err)
	}
	return s.Process(ctx, n)
}

// BulkRequest describes one logical notification to many users.
type BulkRequest struct {
	Recipients []string
	ClinicID   string
	Type       notification.Type
	Title      string
	Message    string
	Data       map[string]any
	Channels   []notification.Channel
}

// BulkResult counts per-recipient outcomes of a bulk send.
type BulkResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// SendBulk fans the request out to every recipient sequentially. Each
// recipient is isolated: one failure is counted and the loop moves on.
func (s *Service) SendBulk(ctx context.Context, req BulkRequest) (BulkResult, error) {
	var result BulkResult
	for _, userID := range req.Recipients {
		_, err := s.Send(ctx, SendRequest{
			UserID:   userID,
			ClinicID: req.ClinicID,
			Type:     req.Type,
			Title:    req.Title,
			Message:  req.Message,
			Data:     req.Data,
			Channels: req.Channels,
		})
		if err != nil {
			result.Failed++
			s.logger.WarnContext(ctx, "bulk send failed for recipient",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			continue
		}
		result.Sent++
	}
	return result, nil
}

// MarkAsRead marks one of the user's in-app records as read.
func (s *Service) MarkAsRead(ctx context.Context, userID, notificationID string) (*notification.Notification, error) {
	n, err := s.storage.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrNotOwner
	}
	if err := n.MarkRead(); err != nil {
		return nil, err
	}
	if err := s.storage.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to persist read notification: %w", err)
	}
	return n, nil
}

// MarkAllAsRead marks every unread in-app record of the user as read and
// returns how many were modified.
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	return s.storage.MarkAllRead(ctx, userID)
}

// ListUserNotifications returns the user's in-app records, newest first.
// The channel filter defaults to in-app; callers may widen it explicitly.
func (s *Service) ListUserNotifications(ctx context.Context, userID string, opts notification.ListOptions) ([]notification.Notification, error) {
	if opts.Channel == "" {
		opts.Channel = notification.ChannelInApp
	}
	return s.storage.List(ctx, userID, opts)
}

// UnreadCount returns the number of unread in-app records for the user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.storage.CountUnread(ctx, userID)
}

// SweepResult counts per-record outcomes of a scheduled sweep.
type SweepResult struct {
	Processed int
	Failed    int
}

// ProcessScheduled dispatches every pending record whose schedule time
// has passed. Records are isolated from each other; the result counts
// both outcomes.
func (s *Service) ProcessScheduled(ctx context.Context) (SweepResult, error) {
	due, err := s.storage.ListDue(ctx, time.Now())
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list due notifications: %w", err)
	}

	var result SweepResult
	for i := range due {
		if err := s.Process(ctx, &due[i]); err != nil {
			result.Failed++
			if s.queue != nil {
				s.queue.Enqueue(due[i].ID)
			}
			continue
		}
		result.Processed++
	}
	return result, nil
}

// RetryFailed moves failed records with retry budget left back to
// pending and enqueues them. This is the only recovery path for retries
// lost to a process restart: queue jobs live in memory only.
func (s *Service) RetryFailed(ctx context.Context) (int, error) {
	retryable, err := s.storage.ListRetryable(ctx, s.maxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to list retryable notifications: %w", err)
	}

	count := 0
	for i := range retryable {
		n := &retryable[i]
		if err := n.MarkRetrying(); err != nil {
			continue
		}
		if err := s.storage.Update(ctx, n); err != nil {
			s.logger.WarnContext(ctx, "failed to reset notification for retry",
				slog.String("notification_id", n.ID),
				slog.String("error", err.Error()))
			continue
		}
		if s.queue != nil {
			s.queue.Enqueue(n.ID)
		}
		count++
	}
	return count, nil
}

// stringifyData flattens the structured payload into the string map the
// channel providers understand.
func stringifyData(data map[string]any) map[string]string {
	if len(data) == 0 {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = fmt.Sprint(v)
	}
	return out
}
