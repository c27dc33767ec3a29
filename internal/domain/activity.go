package domain

import "time"

// ActionKind names a user action tracked by the activity ledger.
type ActionKind string

const (
	ActionPlanCreation  ActionKind = "plan_creation"
	ActionDayCreation   ActionKind = "day_creation"
	ActionDayCompletion ActionKind = "day_completion"
	ActionPlanExport    ActionKind = "plan_export"
)

// ActivityRecord is an immutable fact used only for rate and fraud evaluation.
type ActivityRecord struct {
	ID        string            `bson:"_id" json:"id"`
	UserID    string            `bson:"userId" json:"userId"`
	Kind      ActionKind        `bson:"kind" json:"kind"`
	Timestamp time.Time         `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}
