// internal/repository/mongo/day_repo.go
package mongo

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const dayCollectionName = "plan_days"

// mongoDayRepository implements repository.DayRepository
type mongoDayRepository struct {
	collection *mongo.Collection
}

// NewMongoDayRepository creates a new Day repository.
// EnsureDayIndexes must have run for duplicate day numbers to be rejected.
func NewMongoDayRepository(db *mongo.Database) repository.DayRepository {
	return &mongoDayRepository{
		collection: db.Collection(dayCollectionName),
	}
}

// Create inserts a new day. A second insert for the same (planId, dayNumber)
// fails with repository.ErrDuplicate.
func (r *mongoDayRepository) Create(ctx context.Context, day *domain.Day) (primitive.ObjectID, error) {
	if day.PlanID == primitive.NilObjectID || day.DayNumber <= 0 {
		return primitive.NilObjectID, errors.New("day requires planId and a positive dayNumber")
	}
	day.ID = primitive.NewObjectID()
	day.Key = domain.DayKey(day.DayNumber)
	now := time.Now().UTC()
	day.CreatedAt = now
	day.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, day)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted day ID")
	}
	return insertedID, nil
}

// GetByNumber retrieves a single day of a plan.
func (r *mongoDayRepository) GetByNumber(ctx context.Context, planID primitive.ObjectID, dayNumber int) (*domain.Day, error) {
	var day domain.Day
	filter := bson.M{"planId": planID, "dayNumber": dayNumber}
	err := r.collection.FindOne(ctx, filter).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// ListByPlan retrieves all days of a plan in day order.
func (r *mongoDayRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Day, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})
	return r.find(ctx, bson.M{"planId": planID}, findOptions)
}

// ListRange retrieves days from..to (inclusive), newest first.
func (r *mongoDayRepository) ListRange(ctx context.Context, planID primitive.ObjectID, from, to int) ([]domain.Day, error) {
	if from > to {
		return []domain.Day{}, nil
	}
	filter := bson.M{
		"planId":    planID,
		"dayNumber": bson.M{"$gte": from, "$lte": to},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: -1}})
	return r.find(ctx, filter, findOptions)
}

// ListRecentCompleted retrieves the n most recent completed days, newest first.
func (r *mongoDayRepository) ListRecentCompleted(ctx context.Context, planID primitive.ObjectID, n int) ([]domain.Day, error) {
	filter := bson.M{
		"planId": planID,
		"completion.status": bson.M{"$in": bson.A{
			domain.CompletionCompleted,
			domain.CompletionPartial,
		}},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: -1}})
	if n > 0 {
		findOptions.SetLimit(int64(n))
	}
	return r.find(ctx, filter, findOptions)
}

func (r *mongoDayRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Day, error) {
	days := []domain.Day{}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// UpdateCompletion replaces the completion and performance sub-records.
func (r *mongoDayRepository) UpdateCompletion(ctx context.Context, planID primitive.ObjectID, dayNumber int, completion domain.DayCompletion, performance domain.DayPerformance) error {
	filter := bson.M{"planId": planID, "dayNumber": dayNumber}
	update := bson.M{
		"$set": bson.M{
			"completion":  completion,
			"performance": performance,
			"updatedAt":   time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ReplaceContent swaps the generated payload of an existing day, keeping its
// identity and completion state.
func (r *mongoDayRepository) ReplaceContent(ctx context.Context, planID primitive.ObjectID, dayNumber int, day *domain.Day) error {
	filter := bson.M{"planId": planID, "dayNumber": dayNumber}
	update := bson.M{
		"$set": bson.M{
			"type":                  day.Type,
			"content":               day.Content,
			"generationSource":      day.GenerationSource,
			"generationError":       day.GenerationError,
			"memorySnapshot":        day.MemorySnapshot,
			"nextDaySuggestions":    day.NextDaySuggestions,
			"generatedAt":           day.GeneratedAt,
			"completion.totalItems": day.Completion.TotalItems,
			"updatedAt":             time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByPlan removes every day of a plan (cascade delete).
func (r *mongoDayRepository) DeleteByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"planId": planID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureDayIndexes creates necessary indexes. Call during startup.
func EnsureDayIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// One document per (plan, day number); this is what makes day creation idempotent
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "dayNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "completion.status", Value: 1}, {Key: "dayNumber", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
