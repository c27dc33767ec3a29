// internal/repository/mongo/plan_repo.go
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

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.OwnerID == "" || plan.Kind == "" || plan.TotalDays <= 0 {
		return primitive.NilObjectID, errors.New("plan requires ownerId, kind, and totalDays")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = plan.CreatedAt

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByOwner retrieves all plans of a user, newest first.
func (r *mongoPlanRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Plan, error) {
	var plans []domain.Plan
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"ownerId": ownerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CountByOwnerAndStatus counts the user's plans in any of the given statuses.
func (r *mongoPlanRepository) CountByOwnerAndStatus(ctx context.Context, ownerID string, statuses ...domain.PlanStatus) (int, error) {
	filter := bson.M{"ownerId": ownerID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CountCreatedSince counts plans the user created at or after since.
func (r *mongoPlanRepository) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	filter := bson.M{
		"ownerId":   ownerID,
		"createdAt": bson.M{"$gte": since},
	}
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// UpdateStatus sets the lifecycle status.
func (r *mongoPlanRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	return r.set(ctx, id, bson.M{"status": status})
}

// UpdateGeneration replaces the generation sub-record.
func (r *mongoPlanRepository) UpdateGeneration(ctx context.Context, id primitive.ObjectID, gen domain.PlanGeneration) error {
	return r.set(ctx, id, bson.M{"generation": gen})
}

// UpdateMemorySummary caches the rolling memory summary on the plan.
func (r *mongoPlanRepository) UpdateMemorySummary(ctx context.Context, id primitive.ObjectID, summary domain.MemorySummary) error {
	return r.set(ctx, id, bson.M{"memorySummary": summary})
}

func (r *mongoPlanRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ApplyProgress folds a progress delta into the stored aggregate in a single
// pipeline update, so concurrent completions never lose an increment.
func (r *mongoPlanRepository) ApplyProgress(ctx context.Context, id primitive.ObjectID, delta domain.ProgressDelta) (*domain.Plan, error) {
	set := bson.D{
		{Key: "progress.completedDays", Value: bson.D{{Key: "$add", Value: bson.A{"$progress.completedDays", delta.CompletedDays}}}},
		{Key: "progress.skippedDays", Value: bson.D{{Key: "$add", Value: bson.A{"$progress.skippedDays", delta.SkippedDays}}}},
		{Key: "progress.adaptations", Value: bson.D{{Key: "$add", Value: bson.A{"$progress.adaptations", delta.Adaptations}}}},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}
	if delta.Rating > 0 {
		set = append(set,
			bson.E{Key: "progress.averageRating", Value: bson.D{{Key: "$divide", Value: bson.A{
				bson.D{{Key: "$add", Value: bson.A{
					bson.D{{Key: "$multiply", Value: bson.A{"$progress.averageRating", "$progress.ratedDays"}}},
					delta.Rating,
				}}},
				bson.D{{Key: "$add", Value: bson.A{"$progress.ratedDays", 1}}},
			}}}},
			bson.E{Key: "progress.ratedDays", Value: bson.D{{Key: "$add", Value: bson.A{"$progress.ratedDays", 1}}}},
		)
	}
	if delta.CompletedAt != nil {
		set = append(set, bson.E{Key: "progress.lastCompletedAt", Value: delta.CompletedAt.UTC()})
	}
	if delta.AdvanceTo > 0 {
		set = append(set, bson.E{Key: "currentDay", Value: bson.D{{Key: "$min", Value: bson.A{
			bson.D{{Key: "$max", Value: bson.A{"$currentDay", delta.AdvanceTo}}},
			"$totalDays",
		}}}})
	}

	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var plan domain.Plan
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Delete removes a plan owned by the given user. Days are removed by the caller.
func (r *mongoPlanRepository) Delete(ctx context.Context, id primitive.ObjectID, ownerID string) error {
	if id == primitive.NilObjectID || ownerID == "" {
		return errors.New("plan ID and owner ID are required for deletion")
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Quota checks: open plans per owner
			Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			// Quota checks: plans created per hour, and the owner listing
			Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
