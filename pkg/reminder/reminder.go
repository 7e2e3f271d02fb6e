package reminder

import (
	"context"
	"time"
)

// Window identifies one reminder lead-time window. Each window carries
// its own per-entity idempotency flag so the sweeps never double-remind.
type Window string

const (
	// Window24h covers appointments starting in [now+23h, now+24h].
	Window24h Window = "24h"
	// Window1h covers appointments starting in [now+45m, now+75m].
	Window1h Window = "1h"
)

// Appointment is the upstream scheduled entity the appointment sweeps
// remind about. The engine never creates appointments; it only reads
// them and flips their reminder flags.
type Appointment struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	ClinicID    string    `json:"clinic_id,omitempty" bson:"clinic_id,omitempty"`
	DoctorName  string    `json:"doctor_name,omitempty" bson:"doctor_name,omitempty"`
	StartsAt    time.Time `json:"starts_at" bson:"starts_at"`
	Reminded24h bool      `json:"reminded_24h" bson:"reminded_24h"`
	Reminded1h  bool      `json:"reminded_1h" bson:"reminded_1h"`
}

// Reminded reports whether the appointment was already reminded for the
// given window.
func (a *Appointment) Reminded(w Window) bool {
	switch w {
	case Window24h:
		return a.Reminded24h
	case Window1h:
		return a.Reminded1h
	}
	return false
}

// ServiceBooking is an upstream same-day service entity with a single
// reminder flag.
type ServiceBooking struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	ClinicID    string    `json:"clinic_id,omitempty" bson:"clinic_id,omitempty"`
	ServiceName string    `json:"service_name" bson:"service_name"`
	ScheduledAt time.Time `json:"scheduled_at" bson:"scheduled_at"`
	Reminded    bool      `json:"reminded" bson:"reminded"`
}

// AppointmentSource reads upcoming appointments and records that a
// reminder window was handled.
type AppointmentSource interface {
	// ListUnreminded returns appointments starting in [from, to) that
	// have not been reminded for the window yet.
	ListUnreminded(ctx context.Context, from, to time.Time, w Window) ([]Appointment, error)

	// MarkReminded flips the window's idempotency flag on the
	// appointment.
	MarkReminded(ctx context.Context, id string, w Window) error
}

// BookingSource reads upcoming service bookings and records that their
// reminder was handled.
type BookingSource interface {
	// ListUnreminded returns unreminded bookings scheduled in [from, to).
	ListUnreminded(ctx context.Context, from, to time.Time) ([]ServiceBooking, error)

	// MarkReminded flips the booking's idempotency flag.
	MarkReminded(ctx context.Context, id string) error
}
