package domain

import "time"

// PerformanceTrend values.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// ConsistencyPattern values.
const (
	ConsistencyConsistent   = "consistent"
	ConsistencyImproving    = "improving"
	ConsistencyInconsistent = "inconsistent"
)

// DifficultyTrend values.
const (
	DifficultyIncrease = "increase"
	DifficultyMaintain = "maintain"
	DifficultyDecrease = "decrease"
)

// MemoryContext summarizes recent days so a newly generated day stays
// coherent with what came before it.
type MemoryContext struct {
	FirstDay    bool `bson:"firstDay" json:"firstDay"` // no prior days exist
	UpcomingDay int  `bson:"upcomingDay" json:"upcomingDay"`
	WindowStart int  `bson:"windowStart,omitempty" json:"windowStart,omitempty"`
	WindowEnd   int  `bson:"windowEnd,omitempty" json:"windowEnd,omitempty"`

	RecentDays []DaySnapshot `bson:"recentDays,omitempty" json:"recentDays,omitempty"` // newest first

	PerformanceTrend   string  `bson:"performanceTrend,omitempty" json:"performanceTrend,omitempty"`
	ConsistencyPattern string  `bson:"consistencyPattern,omitempty" json:"consistencyPattern,omitempty"`
	DifficultyTrend    string  `bson:"difficultyTrend,omitempty" json:"difficultyTrend,omitempty"`
	CompletionRate     float64 `bson:"completionRate" json:"completionRate"`

	Preferences              []string `bson:"preferences,omitempty" json:"preferences,omitempty"`
	Avoid                    []string `bson:"avoid,omitempty" json:"avoid,omitempty"`
	PreferredDurationMinutes int      `bson:"preferredDurationMinutes,omitempty" json:"preferredDurationMinutes,omitempty"`

	Recommendations []string `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// DaySnapshot is the compact view of a past day carried in a memory context.
type DaySnapshot struct {
	DayNumber    int              `bson:"dayNumber" json:"dayNumber"`
	Type         DayType          `bson:"type" json:"type"`
	Title        string           `bson:"title,omitempty" json:"title,omitempty"`
	Focus        []string         `bson:"focus,omitempty" json:"focus,omitempty"`
	Items        []string         `bson:"items,omitempty" json:"items,omitempty"`
	Status       CompletionStatus `bson:"status" json:"status"`
	Rating       int              `bson:"rating,omitempty" json:"rating,omitempty"`
	Energy       int              `bson:"energy,omitempty" json:"energy,omitempty"`
	Satisfaction int              `bson:"satisfaction,omitempty" json:"satisfaction,omitempty"`
}

// MemorySummary is the coarse, plan-level rollup cached on the Plan.
type MemorySummary struct {
	PerformanceTrend         string    `bson:"performanceTrend" json:"performanceTrend"`
	ConsistencyPattern       string    `bson:"consistencyPattern" json:"consistencyPattern"`
	DifficultyTrend          string    `bson:"difficultyTrend" json:"difficultyTrend"`
	Preferences              []string  `bson:"preferences,omitempty" json:"preferences,omitempty"`
	Avoid                    []string  `bson:"avoid,omitempty" json:"avoid,omitempty"`
	PreferredDurationMinutes int       `bson:"preferredDurationMinutes,omitempty" json:"preferredDurationMinutes,omitempty"`
	ThroughDay               int       `bson:"throughDay" json:"throughDay"`
	UpdatedAt                time.Time `bson:"updatedAt" json:"updatedAt"`
}
