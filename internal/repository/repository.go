package repository

import (
	"alcyxob/wellness-app/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// PlanRepository defines the interface for interacting with plan documents.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Plan, error)
	CountByOwnerAndStatus(ctx context.Context, ownerID string, statuses ...domain.PlanStatus) (int, error)
	CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus) error
	UpdateGeneration(ctx context.Context, id primitive.ObjectID, gen domain.PlanGeneration) error
	ApplyProgress(ctx context.Context, id primitive.ObjectID, delta domain.ProgressDelta) (*domain.Plan, error)
	UpdateMemorySummary(ctx context.Context, id primitive.ObjectID, summary domain.MemorySummary) error
	Delete(ctx context.Context, id primitive.ObjectID, ownerID string) error
}

// DayRepository defines the interface for the ordered day collection of a plan.
// Days are keyed by (planId, dayNumber); Create rejects a second write of the same key with ErrDuplicate.
type DayRepository interface {
	Create(ctx context.Context, day *domain.Day) (primitive.ObjectID, error)
	GetByNumber(ctx context.Context, planID primitive.ObjectID, dayNumber int) (*domain.Day, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.Day, error)
	// ListRange returns days with from <= dayNumber <= to, newest first.
	ListRange(ctx context.Context, planID primitive.ObjectID, from, to int) ([]domain.Day, error)
	ListRecentCompleted(ctx context.Context, planID primitive.ObjectID, n int) ([]domain.Day, error)
	UpdateCompletion(ctx context.Context, planID primitive.ObjectID, dayNumber int, completion domain.DayCompletion, performance domain.DayPerformance) error
	ReplaceContent(ctx context.Context, planID primitive.ObjectID, dayNumber int, day *domain.Day) error
	DeleteByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error)
}

// ActivityStore is the append-only storage behind the activity ledger.
type ActivityStore interface {
	Append(ctx context.Context, rec domain.ActivityRecord) error
	// CountSince counts records for the user at or after since. An empty kind counts every kind.
	CountSince(ctx context.Context, userID string, kind domain.ActionKind, since time.Time) (int, error)
	// ListSince returns the user's records at or after since, oldest first.
	ListSince(ctx context.Context, userID string, since time.Time) ([]domain.ActivityRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExportRepository stores metadata about plan snapshots written to object storage.
type ExportRepository interface {
	Create(ctx context.Context, export *domain.PlanExport) (primitive.ObjectID, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanExport, error)
	DeleteByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanExport, error)
}
