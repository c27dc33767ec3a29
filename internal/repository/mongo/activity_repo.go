package mongo

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activityCollectionName = "activity_records"

// mongoActivityStore implements repository.ActivityStore
type mongoActivityStore struct {
	collection *mongo.Collection
}

// NewMongoActivityStore creates an append-only activity store.
func NewMongoActivityStore(db *mongo.Database) repository.ActivityStore {
	return &mongoActivityStore{
		collection: db.Collection(activityCollectionName),
	}
}

// Append inserts one immutable record.
func (s *mongoActivityStore) Append(ctx context.Context, rec domain.ActivityRecord) error {
	_, err := s.collection.InsertOne(ctx, rec)
	return err
}

// CountSince counts the user's records of a kind at or after since.
func (s *mongoActivityStore) CountSince(ctx context.Context, userID string, kind domain.ActionKind, since time.Time) (int, error) {
	filter := bson.M{
		"userId":    userID,
		"timestamp": bson.M{"$gte": since},
	}
	if kind != "" {
		filter["kind"] = kind
	}
	n, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ListSince returns the user's records at or after since, oldest first.
func (s *mongoActivityStore) ListSince(ctx context.Context, userID string, since time.Time) ([]domain.ActivityRecord, error) {
	filter := bson.M{
		"userId":    userID,
		"timestamp": bson.M{"$gte": since},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	records := []domain.ActivityRecord{}
	cursor, err := s.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteBefore prunes records older than cutoff. The TTL index does the same
// lazily; this is for explicit janitor runs.
func (s *mongoActivityStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.collection.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureActivityIndexes creates the query index and a TTL index that expires
// records after the retention window.
func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection, retention time.Duration) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "kind", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention / time.Second)),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
