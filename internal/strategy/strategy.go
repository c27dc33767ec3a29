// Package strategy holds the per-kind content strategies driven by the plan
// orchestrator, and the deterministic fallback library they degrade to.
package strategy

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/generator"
	"alcyxob/wellness-app/internal/memoryctx"
	"context"
	"strings"
	"time"
)

// DayGenerator is the remote content service as seen by a strategy.
type DayGenerator interface {
	GenerateDay(ctx context.Context, req generator.Request) (string, error)
}

// Generated is the outcome of a successful generation.
type Generated struct {
	Content     domain.DayContent
	Suggestions []string
}

func baseRequest(plan *domain.Plan, dayNumber int, dayType domain.DayType, mc *domain.MemoryContext) generator.Request {
	req := generator.Request{
		Kind:          plan.Kind,
		DayNumber:     dayNumber,
		TotalDays:     plan.TotalDays,
		DayType:       dayType,
		Difficulty:    plan.Difficulty,
		Category:      plan.Category,
		Profile:       plan.Profile,
		Settings:      plan.Settings,
		MemoryContext: memoryctx.Text(mc),
	}
	req.Position(plan)
	return req
}

// schemaFailure turns a parse error into the generation error the
// orchestrator falls back on.
func schemaFailure(err error) error {
	return &generator.GenerationError{Stage: generator.StageSchema, Err: err}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// ParseWeekday accepts full and three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}
