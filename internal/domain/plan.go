// internal/domain/plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanKind distinguishes the two families of generated plans.
type PlanKind string

const (
	PlanKindExercise  PlanKind = "exercise"  // Automatic exercise program
	PlanKindNutrition PlanKind = "nutrition" // Automatic nutrition challenge
)

// PlanStatus type for the plan lifecycle
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusPaused    PlanStatus = "paused"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusCancelled PlanStatus = "cancelled"
)

// Difficulty tiers accepted for a plan.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// GenerationStatus tracks how far the background day generation got.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationGenerating GenerationStatus = "generating"
	GenerationReady      GenerationStatus = "ready"   // every day persisted
	GenerationPartial    GenerationStatus = "partial" // run stopped early; days 1..GeneratedDays are usable
)

// Plan represents one multi-day program or challenge owned by a single user.
type Plan struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   string             `bson:"ownerId" json:"ownerId"`
	Kind      PlanKind           `bson:"kind" json:"kind"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`

	TotalDays  int          `bson:"totalDays" json:"totalDays"` // Fixed at creation
	Difficulty Difficulty   `bson:"difficulty" json:"difficulty"`
	Category   string       `bson:"category,omitempty" json:"category,omitempty"` // e.g. "home", "gym", "weight_loss"
	Profile    UserProfile  `bson:"profile" json:"profile"`
	Settings   PlanSettings `bson:"settings" json:"settings"`
	StartDate  time.Time    `bson:"startDate" json:"startDate"`

	CurrentDay int        `bson:"currentDay" json:"currentDay"` // 1..TotalDays, never decreases
	Status     PlanStatus `bson:"status" json:"status"`

	Progress      PlanProgress   `bson:"progress" json:"progress"`
	MemorySummary *MemorySummary `bson:"memorySummary,omitempty" json:"memorySummary,omitempty"`
	Generation    PlanGeneration `bson:"generation" json:"generation"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PlanSettings holds the knobs that shape day generation.
type PlanSettings struct {
	DaysPerWeek    int      `bson:"daysPerWeek,omitempty" json:"daysPerWeek,omitempty"`
	SessionMinutes int      `bson:"sessionMinutes,omitempty" json:"sessionMinutes,omitempty"`
	RestDays       []string `bson:"restDays,omitempty" json:"restDays,omitempty"` // weekday names, e.g. "saturday"
	AutoAdapt      bool     `bson:"autoAdapt" json:"autoAdapt"`
	MealsPerDay    int      `bson:"mealsPerDay,omitempty" json:"mealsPerDay,omitempty"`
	PrepEvery      int      `bson:"prepEvery,omitempty" json:"prepEvery,omitempty"` // 0 uses the default cadence, negative disables prep days
}

// PlanProgress is the aggregate completion state, updated on every day completion.
type PlanProgress struct {
	CompletedDays   int        `bson:"completedDays" json:"completedDays"`
	SkippedDays     int        `bson:"skippedDays" json:"skippedDays"`
	RatedDays       int        `bson:"ratedDays" json:"ratedDays"`
	AverageRating   float64    `bson:"averageRating" json:"averageRating"`
	Adaptations     int        `bson:"adaptations" json:"adaptations"`
	LastCompletedAt *time.Time `bson:"lastCompletedAt,omitempty" json:"lastCompletedAt,omitempty"`
}

// ProgressDelta is applied atomically by the store to PlanProgress.
type ProgressDelta struct {
	CompletedDays int
	SkippedDays   int
	Rating        int // 0 means "not rated"
	Adaptations   int
	CompletedAt   *time.Time
	AdvanceTo     int // new CurrentDay candidate; ignored when not greater than the stored value
}

// PlanGeneration describes the state of the day generation run for a plan.
type PlanGeneration struct {
	RunID         string           `bson:"runId,omitempty" json:"runId,omitempty"`
	Status        GenerationStatus `bson:"status" json:"status"`
	GeneratedDays int              `bson:"generatedDays" json:"generatedDays"` // highest contiguous day persisted
	FallbackDays  int              `bson:"fallbackDays" json:"fallbackDays"`
	Degraded      bool             `bson:"degraded" json:"degraded"`
	LastError     string           `bson:"lastError,omitempty" json:"lastError,omitempty"`
	StartedAt     *time.Time       `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	FinishedAt    *time.Time       `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
}

// IsOpen reports whether the plan still counts against the concurrent plan quota.
func (p *Plan) IsOpen() bool {
	return p.Status == PlanStatusActive || p.Status == PlanStatusPaused
}

// DayDate returns the calendar date of the given day number.
func (p *Plan) DayDate(dayNumber int) time.Time {
	return p.StartDate.AddDate(0, 0, dayNumber-1)
}
