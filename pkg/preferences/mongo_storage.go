package preferences

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection is the collection name used by NewMongoStorage.
const DefaultCollection = "notification_preferences"

// MongoStorage is a MongoDB-backed implementation of Storage. The user id
// doubles as the document id, which enforces the one-record-per-user
// invariant at the storage layer.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a preferences store on the default collection.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{coll: db.Collection(DefaultCollection)}
}

func (s *MongoStorage) Get(ctx context.Context, userID string) (*Preferences, error) {
	var prefs Preferences
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&prefs)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for user %s: %w", userID, err)
	}
	return &prefs, nil
}

func (s *MongoStorage) Create(ctx context.Context, prefs *Preferences) error {
	if prefs.UserID == "" {
		return ErrMissingUserID
	}
	if _, err := s.coll.InsertOne(ctx, prefs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create preferences for user %s: %w", prefs.UserID, err)
	}
	return nil
}

func (s *MongoStorage) Update(ctx context.Context, prefs *Preferences) error {
	if prefs.UserID == "" {
		return ErrMissingUserID
	}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": prefs.UserID},
		prefs,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update preferences for user %s: %w", prefs.UserID, err)
	}
	return nil
}
