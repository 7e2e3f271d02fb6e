package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection is the collection name used by NewMongoStorage.
const DefaultCollection = "notifications"

// MongoStorage is a MongoDB-backed implementation of Storage.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a notification store on the default collection.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{coll: db.Collection(DefaultCollection)}
}

func (s *MongoStorage) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.UserID == "" {
		return ErrMissingUserID
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if _, err := s.coll.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
	}
	return nil
}

func (s *MongoStorage) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification %s: %w", id, err)
	}
	return &n, nil
}

func (s *MongoStorage) Update(ctx context.Context, n *Notification) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": n.ID}, n)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", n.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	filter := bson.M{"user_id": userID}
	if opts.Channel != "" {
		filter["channel"] = opts.Channel
	}
	if opts.OnlyUnread {
		filter["read_at"] = nil
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(opts.Offset))
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (s *MongoStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{
		"user_id": userID,
		"channel": ChannelInApp,
		"read_at": nil,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return int(count), nil
}

func (s *MongoStorage) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	now := time.Now()
	res, err := s.coll.UpdateMany(ctx,
		bson.M{
			"user_id": userID,
			"channel": ChannelInApp,
			"read_at": nil,
			"status":  bson.M{"$in": []Status{StatusSent, StatusDelivered}},
		},
		bson.M{"$set": bson.M{"status": StatusRead, "read_at": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStorage) ListDue(ctx context.Context, now time.Time) ([]Notification, error) {
	cursor, err := s.coll.Find(ctx, bson.M{
		"status": StatusPending,
		"$or": bson.A{
			bson.M{"scheduled_for": nil},
			bson.M{"scheduled_for": bson.M{"$lte": now}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list due notifications: %w", err)
	}
	defer cursor.Close(ctx)

	due := []Notification{}
	if err := cursor.All(ctx, &due); err != nil {
		return nil, fmt.Errorf("failed to decode due notifications: %w", err)
	}
	return due, nil
}

func (s *MongoStorage) ListRetryable(ctx context.Context, maxRetries int) ([]Notification, error) {
	cursor, err := s.coll.Find(ctx, bson.M{
		"status":      StatusFailed,
		"retry_count": bson.M{"$lt": maxRetries},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable notifications: %w", err)
	}
	defer cursor.Close(ctx)

	out := []Notification{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode retryable notifications: %w", err)
	}
	return out, nil
}
