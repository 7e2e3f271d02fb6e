package reminder

import (
	"context"
	"sync"
	"time"
)

// MemoryAppointmentSource is an in-memory AppointmentSource for tests
// and single-process deployments.
type MemoryAppointmentSource struct {
	mu    sync.RWMutex
	items map[string]*Appointment
}

// NewMemoryAppointmentSource creates an empty in-memory source.
func NewMemoryAppointmentSource() *MemoryAppointmentSource {
	return &MemoryAppointmentSource{items: make(map[string]*Appointment)}
}

// Put stores or replaces an appointment.
func (s *MemoryAppointmentSource) Put(appt Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[appt.ID] = &appt
}

// Get returns a copy of the appointment.
func (s *MemoryAppointmentSource) Get(id string) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.items[id]
	if !ok {
		return Appointment{}, false
	}
	return *appt, true
}

func (s *MemoryAppointmentSource) ListUnreminded(ctx context.Context, from, to time.Time, w Window) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Appointment
	for _, appt := range s.items {
		if appt.StartsAt.Before(from) || !appt.StartsAt.Before(to) {
			continue
		}
		if appt.Reminded(w) {
			continue
		}
		matched = append(matched, *appt)
	}
	return matched, nil
}

func (s *MemoryAppointmentSource) MarkReminded(ctx context.Context, id string, w Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	switch w {
	case Window24h:
		appt.Reminded24h = true
	case Window1h:
		appt.Reminded1h = true
	default:
		return ErrUnknownWindow
	}
	return nil
}

// MemoryBookingSource is an in-memory BookingSource for tests and
// single-process deployments.
type MemoryBookingSource struct {
	mu    sync.RWMutex
	items map[string]*ServiceBooking
}

// NewMemoryBookingSource creates an empty in-memory source.
func NewMemoryBookingSource() *MemoryBookingSource {
	return &MemoryBookingSource{items: make(map[string]*ServiceBooking)}
}

// Put stores or replaces a booking.
func (s *MemoryBookingSource) Put(booking ServiceBooking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[booking.ID] = &booking
}

// Get returns a copy of the booking.
func (s *MemoryBookingSource) Get(id string) (ServiceBooking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	booking, ok := s.items[id]
	if !ok {
		return ServiceBooking{}, false
	}
	return *booking, true
}

func (s *MemoryBookingSource) ListUnreminded(ctx context.Context, from, to time.Time) ([]ServiceBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []ServiceBooking
	for _, booking := range s.items {
		if booking.Reminded {
			continue
		}
		if booking.ScheduledAt.Before(from) || !booking.ScheduledAt.Before(to) {
			continue
		}
		matched = append(matched, *booking)
	}
	return matched, nil
}

func (s *MemoryBookingSource) MarkReminded(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	booking.Reminded = true
	return nil
}
