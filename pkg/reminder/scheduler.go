package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clinikit/notify/pkg/delivery"
	"github.com/clinikit/notify/pkg/notification"
	"github.com/clinikit/notify/pkg/preferences"
)

// Sender is the slice of the delivery service the scheduler needs.
type Sender interface {
	Send(ctx context.Context, req delivery.SendRequest) ([]*notification.Notification, error)
}

// Config holds the scheduler tuning knobs, loadable from the environment.
type Config struct {
	DailyInterval time.Duration `env:"REMINDER_DAILY_INTERVAL" envDefault:"1h"`
	HourInterval  time.Duration `env:"REMINDER_HOUR_INTERVAL" envDefault:"15m"`
}

// primaryChannels is the mandatory reminder channel set. Secondary
// channels (SMS or WhatsApp) are best-effort on top of it.
var primaryChannels = []notification.Channel{
	notification.ChannelEmail,
	notification.ChannelInApp,
}

// Scheduler periodically sweeps upstream scheduled entities and emits
// reminders exactly once per entity and window. Each sweep targets a
// disjoint lead-time window so an entity can never match twice within
// one window; a per-entity flag set after the send attempt keeps
// repeated sweeps idempotent.
type Scheduler struct {
	sender       Sender
	resolver     *preferences.Resolver
	appointments AppointmentSource
	bookings     BookingSource
	logger       *slog.Logger

	dailyInterval time.Duration
	hourInterval  time.Duration

	dailyBusy atomic.Bool
	hourBusy  atomic.Bool

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConfig applies an environment-loaded Config.
func WithConfig(cfg Config) SchedulerOption {
	return func(s *Scheduler) {
		if cfg.DailyInterval > 0 {
			s.dailyInterval = cfg.DailyInterval
		}
		if cfg.HourInterval > 0 {
			s.hourInterval = cfg.HourInterval
		}
	}
}

// WithBookingSource wires the same-day service booking sweep. Without
// one, only appointment reminders run.
func WithBookingSource(src BookingSource) SchedulerOption {
	return func(s *Scheduler) {
		s.bookings = src
	}
}

// NewScheduler creates a reminder scheduler over the given sender,
// resolver and appointment source.
func NewScheduler(sender Sender, resolver *preferences.Resolver, appointments AppointmentSource, opts ...SchedulerOption) (*Scheduler, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}

	s := &Scheduler{
		sender:        sender,
		resolver:      resolver,
		appointments:  appointments,
		logger:        slog.Default(),
		dailyInterval: time.Hour,
		hourInterval:  15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the hourly and 15-minute sweep loops.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("reminder scheduler already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.loop(ctx, s.dailyInterval, s.runDaily)
	go s.loop(ctx, s.hourInterval, s.runHourly)

	s.logger.Info("reminder scheduler started",
		slog.Duration("daily_interval", s.dailyInterval),
		slog.Duration("hour_interval", s.hourInterval))
	return nil
}

// Stop cancels the sweep loops and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop() error {
	s.lifecycleMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.lifecycleMu.Unlock()

	if cancel == nil {
		return fmt.Errorf("reminder scheduler not started")
	}
	cancel()
	s.wg.Wait()

	s.logger.Info("reminder scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, sweep func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	if !s.dailyBusy.CompareAndSwap(false, true) {
		return
	}
	defer s.dailyBusy.Store(false)

	if _, err := s.Sweep24Hour(ctx, time.Now()); err != nil {
		s.logger.ErrorContext(ctx, "24-hour reminder sweep failed", slog.String("error", err.Error()))
	}
	if s.bookings != nil {
		if _, err := s.SweepSameDayBookings(ctx, time.Now()); err != nil {
			s.logger.ErrorContext(ctx, "same-day booking sweep failed", slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) runHourly(ctx context.Context) {
	if !s.hourBusy.CompareAndSwap(false, true) {
		return
	}
	defer s.hourBusy.Store(false)

	if _, err := s.Sweep1Hour(ctx, time.Now()); err != nil {
		s.logger.ErrorContext(ctx, "1-hour reminder sweep failed", slog.String("error", err.Error()))
	}
}

// Sweep24Hour reminds about appointments starting in [now+23h, now+24h).
// It returns the number of appointments it attempted.
func (s *Scheduler) Sweep24Hour(ctx context.Context, now time.Time) (int, error) {
	return s.sweepAppointments(ctx, now.Add(23*time.Hour), now.Add(24*time.Hour), Window24h)
}

// Sweep1Hour reminds about appointments starting in [now+45m, now+75m).
// It returns the number of appointments it attempted.
func (s *Scheduler) Sweep1Hour(ctx context.Context, now time.Time) (int, error) {
	return s.sweepAppointments(ctx, now.Add(45*time.Minute), now.Add(75*time.Minute), Window1h)
}

func (s *Scheduler) sweepAppointments(ctx context.Context, from, to time.Time, w Window) (int, error) {
	if s.appointments == nil {
		return 0, nil
	}

	matched, err := s.appointments.ListUnreminded(ctx, from, to, w)
	if err != nil {
		return 0, fmt.Errorf("failed to list appointments for %s window: %w", w, err)
	}

	attempted := 0
	for i := range matched {
		appt := &matched[i]
		s.remindAppointment(ctx, appt, w)

		// The flag records that a reminder was attempted, not that it
		// was delivered. Set it even when every channel failed so the
		// next sweep does not spam the user with duplicates.
		if err := s.appointments.MarkReminded(ctx, appt.ID, w); err != nil {
			s.logger.ErrorContext(ctx, "failed to flag appointment as reminded",
				slog.String("appointment_id", appt.ID),
				slog.String("window", string(w)),
				slog.String("error", err.Error()))
			continue
		}
		attempted++
	}
	return attempted, nil
}

func (s *Scheduler) remindAppointment(ctx context.Context, appt *Appointment, w Window) {
	title, body := s.appointmentMessage(ctx, appt, w)

	req := delivery.SendRequest{
		UserID:        appt.UserID,
		ClinicID:      appt.ClinicID,
		Type:          notification.TypeReminder,
		Title:         title,
		Message:       body,
		Channels:      primaryChannels,
		AppointmentID: appt.ID,
		Data: map[string]any{
			"appointment_id": appt.ID,
			"starts_at":      appt.StartsAt.Format(time.RFC3339),
			"window":         string(w),
		},
	}
	if _, err := s.sender.Send(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "appointment reminder send failed",
			slog.String("appointment_id", appt.ID),
			slog.String("window", string(w)),
			slog.String("error", err.Error()))
	}

	s.sendSecondary(ctx, req)
}

// sendSecondary dispatches one best-effort SMS or WhatsApp reminder on
// top of the mandatory channels. A misconfigured secondary channel is
// logged and swallowed so it can never block the primary path.
func (s *Scheduler) sendSecondary(ctx context.Context, req delivery.SendRequest) {
	prefs, err := s.resolver.GetOrCreate(ctx, req.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "secondary reminder channel skipped",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()))
		return
	}

	var secondary notification.Channel
	switch {
	case prefs.SMS.Enabled && prefs.SMS.Address != "":
		secondary = notification.ChannelSMS
	case prefs.WhatsApp.Enabled && prefs.WhatsApp.Address != "":
		secondary = notification.ChannelWhatsApp
	default:
		return
	}

	req.Channels = []notification.Channel{secondary}
	if _, err := s.sender.Send(ctx, req); err != nil {
		s.logger.WarnContext(ctx, "secondary reminder channel failed",
			slog.String("user_id", req.UserID),
			slog.String("channel", string(secondary)),
			slog.String("error", err.Error()))
	}
}

// SweepSameDayBookings reminds about service bookings scheduled between
// now and the end of the calendar day. It returns the number of bookings
// it attempted.
func (s *Scheduler) SweepSameDayBookings(ctx context.Context, now time.Time) (int, error) {
	if s.bookings == nil {
		return 0, nil
	}

	year, month, day := now.Date()
	endOfDay := time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	matched, err := s.bookings.ListUnreminded(ctx, now, endOfDay)
	if err != nil {
		return 0, fmt.Errorf("failed to list same-day bookings: %w", err)
	}

	attempted := 0
	for i := range matched {
		booking := &matched[i]
		s.remindBooking(ctx, booking)

		if err := s.bookings.MarkReminded(ctx, booking.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to flag booking as reminded",
				slog.String("booking_id", booking.ID),
				slog.String("error", err.Error()))
			continue
		}
		attempted++
	}
	return attempted, nil
}

func (s *Scheduler) remindBooking(ctx context.Context, booking *ServiceBooking) {
	when := s.localTime(ctx, booking.UserID, booking.ScheduledAt)

	req := delivery.SendRequest{
		UserID:           booking.UserID,
		ClinicID:         booking.ClinicID,
		Type:             notification.TypeReminder,
		Title:            "Service booking today",
		Message:          fmt.Sprintf("Your %s is scheduled today at %s.", booking.ServiceName, when.Format("15:04")),
		Channels:         primaryChannels,
		ServiceRequestID: booking.ID,
		Data: map[string]any{
			"booking_id":   booking.ID,
			"scheduled_at": booking.ScheduledAt.Format(time.RFC3339),
		},
	}
	if _, err := s.sender.Send(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "booking reminder send failed",
			slog.String("booking_id", booking.ID),
			slog.String("error", err.Error()))
	}

	s.sendSecondary(ctx, req)
}

// appointmentMessage renders the reminder text with the appointment time
// in the user's preferred timezone.
func (s *Scheduler) appointmentMessage(ctx context.Context, appt *Appointment, w Window) (title, body string) {
	when := s.localTime(ctx, appt.UserID, appt.StartsAt)

	doctor := ""
	if appt.DoctorName != "" {
		doctor = " with " + appt.DoctorName
	}

	switch w {
	case Window1h:
		title = "Appointment in 1 hour"
		body = fmt.Sprintf("Your appointment%s starts at %s.", doctor, when.Format("15:04"))
	default:
		title = "Appointment tomorrow"
		body = fmt.Sprintf("Your appointment%s is on %s.", doctor, when.Format("Monday, 2 January at 15:04"))
	}
	return title, body
}

// localTime converts t into the user's preferences timezone, falling
// back to t unchanged when preferences cannot be loaded.
func (s *Scheduler) localTime(ctx context.Context, userID string, t time.Time) time.Time {
	prefs, err := s.resolver.GetOrCreate(ctx, userID)
	if err != nil {
		return t
	}
	return t.In(prefs.Location())
}
