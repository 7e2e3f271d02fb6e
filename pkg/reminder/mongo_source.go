package reminder

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	// DefaultAppointmentCollection is the collection read by
	// NewMongoAppointmentSource.
	DefaultAppointmentCollection = "appointments"

	// DefaultBookingCollection is the collection read by
	// NewMongoBookingSource.
	DefaultBookingCollection = "service_bookings"
)

// MongoAppointmentSource reads appointments owned by the upstream
// scheduling system. The engine only consumes them and flips reminder
// flags; it never creates or deletes appointments.
type MongoAppointmentSource struct {
	coll *mongo.Collection
}

// NewMongoAppointmentSource creates an appointment source on the default
// collection.
func NewMongoAppointmentSource(db *mongo.Database) *MongoAppointmentSource {
	return &MongoAppointmentSource{coll: db.Collection(DefaultAppointmentCollection)}
}

func windowField(w Window) (string, error) {
	switch w {
	case Window24h:
		return "reminded_24h", nil
	case Window1h:
		return "reminded_1h", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWindow, w)
}

func (s *MongoAppointmentSource) ListUnreminded(ctx context.Context, from, to time.Time, w Window) ([]Appointment, error) {
	field, err := windowField(w)
	if err != nil {
		return nil, err
	}

	cursor, err := s.coll.Find(ctx, bson.M{
		"starts_at": bson.M{"$gte": from, "$lt": to},
		field:       bson.M{"$ne": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appointments := []Appointment{}
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func (s *MongoAppointmentSource) MarkReminded(ctx context.Context, id string, w Window) error {
	field, err := windowField(w)
	if err != nil {
		return err
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: true}})
	if err != nil {
		return fmt.Errorf("failed to flag appointment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoBookingSource reads service bookings owned by the upstream
// scheduling system.
type MongoBookingSource struct {
	coll *mongo.Collection
}

// NewMongoBookingSource creates a booking source on the default
// collection.
func NewMongoBookingSource(db *mongo.Database) *MongoBookingSource {
	return &MongoBookingSource{coll: db.Collection(DefaultBookingCollection)}
}

func (s *MongoBookingSource) ListUnreminded(ctx context.Context, from, to time.Time) ([]ServiceBooking, error) {
	cursor, err := s.coll.Find(ctx, bson.M{
		"scheduled_at": bson.M{"$gte": from, "$lt": to},
		"reminded":     bson.M{"$ne": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []ServiceBooking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (s *MongoBookingSource) MarkReminded(ctx context.Context, id string) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"reminded": true}})
	if err != nil {
		return fmt.Errorf("failed to flag booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
