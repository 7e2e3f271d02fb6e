package reminder_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinikit/notify/pkg/delivery"
	"github.com/clinikit/notify/pkg/notification"
	"github.com/clinikit/notify/pkg/preferences"
	"github.com/clinikit/notify/pkg/reminder"
)

// recordingSender captures every send request instead of dispatching.
type recordingSender struct {
	mu   sync.Mutex
	sent []delivery.SendRequest
}

func (s *recordingSender) Send(ctx context.Context, req delivery.SendRequest) ([]*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return nil, nil
}

func (s *recordingSender) requests() []delivery.SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery.SendRequest(nil), s.sent...)
}

func newScheduler(t *testing.T, sender reminder.Sender, appts reminder.AppointmentSource, opts ...reminder.SchedulerOption) (*reminder.Scheduler, *preferences.Resolver) {
	t.Helper()
	resolver := preferences.NewResolver(preferences.NewMemoryStorage())
	sched, err := reminder.NewScheduler(sender, resolver, appts, opts...)
	require.NoError(t, err)
	return sched, resolver
}

func TestScheduler_24HourSweepMatchesOnce(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, _ := newScheduler(t, sender, appts)

	now := time.Now()
	appts.Put(reminder.Appointment{
		ID:       "a-1",
		UserID:   "u-1",
		StartsAt: now.Add(23*time.Hour + 30*time.Minute),
	})

	ctx := context.Background()
	attempted, err := sched.Sweep24Hour(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	stored, ok := appts.Get("a-1")
	require.True(t, ok)
	assert.True(t, stored.Reminded24h)
	assert.False(t, stored.Reminded1h, "the 1-hour flag belongs to the other window")

	// Running the sweep again within the same hour must not duplicate.
	attempted, err = sched.Sweep24Hour(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, attempted)

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, notification.TypeReminder, reqs[0].Type)
	assert.Equal(t, "a-1", reqs[0].AppointmentID)
	assert.Equal(t,
		[]notification.Channel{notification.ChannelEmail, notification.ChannelInApp},
		reqs[0].Channels)
}

func TestScheduler_24HourWindowBoundaries(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, _ := newScheduler(t, sender, appts)

	now := time.Now()
	appts.Put(reminder.Appointment{ID: "too-soon", UserID: "u-1", StartsAt: now.Add(22 * time.Hour)})
	appts.Put(reminder.Appointment{ID: "in-window", UserID: "u-1", StartsAt: now.Add(23*time.Hour + time.Minute)})
	appts.Put(reminder.Appointment{ID: "too-late", UserID: "u-1", StartsAt: now.Add(25 * time.Hour)})

	attempted, err := sched.Sweep24Hour(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "in-window", reqs[0].AppointmentID)
}

func TestScheduler_1HourSweepIndependentFlag(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, _ := newScheduler(t, sender, appts)

	now := time.Now()
	appts.Put(reminder.Appointment{
		ID:          "a-1",
		UserID:      "u-1",
		StartsAt:    now.Add(time.Hour),
		Reminded24h: true, // yesterday's sweep already ran
	})

	ctx := context.Background()
	attempted, err := sched.Sweep1Hour(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	stored, ok := appts.Get("a-1")
	require.True(t, ok)
	assert.True(t, stored.Reminded1h)

	attempted, err = sched.Sweep1Hour(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, attempted)
}

func TestScheduler_SecondarySMSChannel(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, resolver := newScheduler(t, sender, appts)

	ctx := context.Background()
	_, err := resolver.Update(ctx, "u-1", func(p *preferences.Preferences) {
		p.SMS.Address = "+15550100"
	})
	require.NoError(t, err)

	now := time.Now()
	appts.Put(reminder.Appointment{ID: "a-1", UserID: "u-1", StartsAt: now.Add(time.Hour)})

	_, err = sched.Sweep1Hour(ctx, now)
	require.NoError(t, err)

	reqs := sender.requests()
	require.Len(t, reqs, 2, "primary plus one best-effort secondary")
	assert.Equal(t, []notification.Channel{notification.ChannelSMS}, reqs[1].Channels)
}

func TestScheduler_NoSecondaryWithoutAddress(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, _ := newScheduler(t, sender, appts)

	now := time.Now()
	appts.Put(reminder.Appointment{ID: "a-1", UserID: "u-1", StartsAt: now.Add(time.Hour)})

	_, err := sched.Sweep1Hour(context.Background(), now)
	require.NoError(t, err)

	// Defaults enable SMS and WhatsApp but configure no address, so only
	// the primary send happens.
	assert.Len(t, sender.requests(), 1)
}

func TestScheduler_FlagSetEvenWhenSendFails(t *testing.T) {
	sender := &failingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, _ := newScheduler(t, sender, appts)

	now := time.Now()
	appts.Put(reminder.Appointment{ID: "a-1", UserID: "u-1", StartsAt: now.Add(time.Hour)})

	attempted, err := sched.Sweep1Hour(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	stored, ok := appts.Get("a-1")
	require.True(t, ok)
	assert.True(t, stored.Reminded1h, "a reminder counts as handled once attempted")
}

type failingSender struct{}

func (s *failingSender) Send(ctx context.Context, req delivery.SendRequest) ([]*notification.Notification, error) {
	return nil, assert.AnError
}

func TestScheduler_SameDayBookings(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	bookings := reminder.NewMemoryBookingSource()
	sched, _ := newScheduler(t, sender, appts, reminder.WithBookingSource(bookings))

	// Fixed morning reference so "later today" and "tomorrow" are
	// unambiguous.
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	bookings.Put(reminder.ServiceBooking{
		ID: "b-1", UserID: "u-1", ServiceName: "blood test",
		ScheduledAt: now.Add(3 * time.Hour),
	})
	bookings.Put(reminder.ServiceBooking{
		ID: "b-2", UserID: "u-2", ServiceName: "x-ray",
		ScheduledAt: now.Add(26 * time.Hour), // tomorrow
	})
	bookings.Put(reminder.ServiceBooking{
		ID: "b-3", UserID: "u-3", ServiceName: "vaccination",
		ScheduledAt: now.Add(2 * time.Hour), Reminded: true,
	})

	ctx := context.Background()
	attempted, err := sched.SweepSameDayBookings(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "b-1", reqs[0].ServiceRequestID)
	assert.Contains(t, reqs[0].Message, "blood test")

	stored, ok := bookings.Get("b-1")
	require.True(t, ok)
	assert.True(t, stored.Reminded)

	attempted, err = sched.SweepSameDayBookings(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, attempted)
}

func TestScheduler_LocalizedAppointmentTime(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, resolver := newScheduler(t, sender, appts)

	ctx := context.Background()
	_, err := resolver.Update(ctx, "u-1", func(p *preferences.Preferences) {
		p.QuietHours.Timezone = "Europe/Berlin"
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appts.Put(reminder.Appointment{
		ID: "a-1", UserID: "u-1", DoctorName: "Dr. Weber",
		StartsAt: now.Add(time.Hour), // 10:00 UTC, 11:00 Berlin
	})

	_, err = sched.Sweep1Hour(ctx, now)
	require.NoError(t, err)

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Message, "Dr. Weber")
	assert.Contains(t, reqs[0].Message, "11:00")
}

func TestScheduler_StartStopLifecycle(t *testing.T) {
	sender := &recordingSender{}
	appts := reminder.NewMemoryAppointmentSource()
	sched, _ := newScheduler(t, sender, appts,
		reminder.WithConfig(reminder.Config{
			DailyInterval: 10 * time.Millisecond,
			HourInterval:  10 * time.Millisecond,
		}))

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	assert.Error(t, sched.Start(ctx), "double start must fail")

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, sched.Stop())
	assert.Error(t, sched.Stop(), "double stop must fail")
}
