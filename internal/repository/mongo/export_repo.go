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

const exportCollectionName = "plan_exports"

// mongoExportRepository implements repository.ExportRepository
type mongoExportRepository struct {
	collection *mongo.Collection
}

// NewMongoExportRepository creates a new PlanExport repository backed by MongoDB.
func NewMongoExportRepository(db *mongo.Database) repository.ExportRepository {
	return &mongoExportRepository{
		collection: db.Collection(exportCollectionName),
	}
}

// Create inserts new export metadata into the database.
func (r *mongoExportRepository) Create(ctx context.Context, export *domain.PlanExport) (primitive.ObjectID, error) {
	if export.PlanID == primitive.NilObjectID || export.OwnerID == "" || export.S3ObjectKey == "" {
		return primitive.NilObjectID, errors.New("export requires planId, ownerId, and s3ObjectKey")
	}

	export.ID = primitive.NewObjectID()
	export.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, export)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ListByPlan retrieves export metadata for a plan, newest first.
func (r *mongoExportRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanExport, error) {
	exports := []domain.PlanExport{}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"planId": planID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &exports); err != nil {
		return nil, err
	}
	return exports, nil
}

// DeleteByPlan removes export metadata for a plan and returns what was removed,
// so the caller can delete the matching S3 objects.
func (r *mongoExportRepository) DeleteByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanExport, error) {
	exports, err := r.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if len(exports) == 0 {
		return exports, nil
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"planId": planID}); err != nil {
		return nil, err
	}
	return exports, nil
}

// EnsureExportIndexes creates necessary indexes for the plan_exports collection.
func EnsureExportIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "planId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}},
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
