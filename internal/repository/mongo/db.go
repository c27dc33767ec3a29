package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI and
// verifies it with a ping against the primary.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection owned by this package.
// The unique (planId, dayNumber) index is required for idempotent day creation,
// so callers should treat a failure here as fatal.
func EnsureIndexes(ctx context.Context, db *mongo.Database, activityRetention time.Duration) error {
	if err := EnsurePlanIndexes(ctx, db.Collection(planCollectionName)); err != nil {
		return fmt.Errorf("plans indexes: %w", err)
	}
	if err := EnsureDayIndexes(ctx, db.Collection(dayCollectionName)); err != nil {
		return fmt.Errorf("plan_days indexes: %w", err)
	}
	if err := EnsureActivityIndexes(ctx, db.Collection(activityCollectionName), activityRetention); err != nil {
		return fmt.Errorf("activity_records indexes: %w", err)
	}
	if err := EnsureExportIndexes(ctx, db.Collection(exportCollectionName)); err != nil {
		return fmt.Errorf("plan_exports indexes: %w", err)
	}
	return nil
}
