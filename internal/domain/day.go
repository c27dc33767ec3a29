// internal/domain/day.go
package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DayType classifies a single day of a plan.
type DayType string

const (
	DayTypeWorkout        DayType = "workout"
	DayTypeMealPlan       DayType = "meal_plan"
	DayTypeRest           DayType = "rest"
	DayTypeActiveRecovery DayType = "active_recovery"
	DayTypePrep           DayType = "prep"
	DayTypeAssessment     DayType = "assessment"
)

// IsRestLike reports whether the day carries no training load and is not
// counted when measuring consistency.
func (t DayType) IsRestLike() bool {
	return t == DayTypeRest || t == DayTypeActiveRecovery
}

// CompletionStatus type for the per-day completion lifecycle
type CompletionStatus string

const (
	CompletionNotStarted CompletionStatus = "not_started"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
	CompletionSkipped    CompletionStatus = "skipped"
	CompletionPartial    CompletionStatus = "partially_completed"
)

// GenerationSource records where a day's content came from.
type GenerationSource string

const (
	SourceGenerated   GenerationSource = "generated"   // remote generative service
	SourceFallback    GenerationSource = "fallback"    // generation failed, default library used
	SourceSynthesized GenerationSource = "synthesized" // non-generative day (rest, recovery)
)

// Day represents one unit of a Plan, keyed by (PlanID, DayNumber).
type Day struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID    primitive.ObjectID `bson:"planId" json:"planId"`
	OwnerID   string             `bson:"ownerId" json:"ownerId"` // Denormalized for ownership checks
	DayNumber int                `bson:"dayNumber" json:"dayNumber"`
	Key       string             `bson:"key" json:"key"` // "day1", "day2", ...
	Type      DayType            `bson:"type" json:"type"`
	Date      time.Time          `bson:"date" json:"date"`

	Content     DayContent     `bson:"content" json:"content"`
	Completion  DayCompletion  `bson:"completion" json:"completion"`
	Performance DayPerformance `bson:"performance" json:"performance"`

	GenerationSource   GenerationSource `bson:"generationSource" json:"generationSource"`
	GenerationError    string           `bson:"generationError,omitempty" json:"generationError,omitempty"`
	MemorySnapshot     *MemoryContext   `bson:"memorySnapshot,omitempty" json:"memorySnapshot,omitempty"`
	NextDaySuggestions []string         `bson:"nextDaySuggestions,omitempty" json:"nextDaySuggestions,omitempty"`
	GeneratedAt        time.Time        `bson:"generatedAt" json:"generatedAt"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DayKey returns the persisted key for a day number.
func DayKey(dayNumber int) string {
	return fmt.Sprintf("day%d", dayNumber)
}

// DayCompletion tracks whether and how the user finished the day.
type DayCompletion struct {
	Status          CompletionStatus `bson:"status" json:"status"`
	StartedAt       *time.Time       `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt     *time.Time       `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Rating          int              `bson:"rating,omitempty" json:"rating,omitempty"` // 1..5, 0 when unrated
	Feedback        string           `bson:"feedback,omitempty" json:"feedback,omitempty"`
	CompletedItems  int              `bson:"completedItems" json:"completedItems"`
	TotalItems      int              `bson:"totalItems" json:"totalItems"`
	DurationMinutes int              `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
}

// IsDone reports whether the day counts as completed for consistency purposes.
func (c DayCompletion) IsDone() bool {
	return c.Status == CompletionCompleted || c.Status == CompletionPartial
}

// DayPerformance holds the user's subjective scores (1..10, 0 when missing).
type DayPerformance struct {
	PerceivedExertion int            `bson:"perceivedExertion,omitempty" json:"perceivedExertion,omitempty"`
	Energy            int            `bson:"energy,omitempty" json:"energy,omitempty"`
	Recovery          int            `bson:"recovery,omitempty" json:"recovery,omitempty"`
	Satisfaction      int            `bson:"satisfaction,omitempty" json:"satisfaction,omitempty"`
	ItemScores        []ItemScore    `bson:"itemScores,omitempty" json:"itemScores,omitempty"`
	Modifications     []Modification `bson:"modifications,omitempty" json:"modifications,omitempty"`
}

// ItemScore rates a single exercise or meal.
type ItemScore struct {
	Name         string `bson:"name" json:"name"`
	Satisfaction int    `bson:"satisfaction" json:"satisfaction"`
}

// Modification reasons that mark an item to be avoided later.
const (
	ModReasonTooDifficult = "too_difficult"
	ModReasonTooEasy      = "too_easy"
	ModReasonDisliked     = "disliked"
	ModReasonInjury       = "injury"
	ModReasonPain         = "pain"
	ModReasonUnavailable  = "unavailable"
)

// Modification is a change the user applied to an item while doing the day.
type Modification struct {
	Item   string `bson:"item" json:"item"`
	Kind   string `bson:"kind" json:"kind"`     // "easier", "harder", "swap", "skip"
	Reason string `bson:"reason" json:"reason"` // one of the ModReason* constants or free text
}

// IsAvoidance reports whether the modification signals the item should not come back.
func (m Modification) IsAvoidance() bool {
	switch m.Reason {
	case ModReasonTooDifficult, ModReasonDisliked, ModReasonInjury, ModReasonPain:
		return true
	}
	return false
}
