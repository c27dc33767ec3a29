// Package quota checks structural plan-creation limits for a user's tier.
package quota

import (
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	TierFree    = "free"
	TierPremium = "premium"
)

// Result codes.
const (
	CodeInvalidDays     = "invalid_total_days"
	CodeMaxDays         = "max_days_per_plan"
	CodeConcurrentPlans = "max_concurrent_plans"
	CodeHourlyCreation  = "max_plans_per_hour"
)

// Result is the outcome of a quota check. Current and Limit are set when the
// failing check is count based so clients can show "3 of 3".
type Result struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"`
	Current int    `json:"current,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Validator reads plan counts and decides; it never writes.
type Validator struct {
	plans repository.PlanRepository
	tiers map[string]config.TierLimits
	clock clock.Clock
}

// NewValidator merges tiers over the built-in free and premium limits.
func NewValidator(plans repository.PlanRepository, tiers map[string]config.TierLimits, clk clock.Clock) *Validator {
	merged := make(map[string]config.TierLimits)
	for name, t := range config.Defaults().Limits.Tiers {
		merged[name] = t
	}
	for name, t := range tiers {
		merged[strings.ToLower(name)] = t
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Validator{plans: plans, tiers: merged, clock: clk}
}

// Limits returns the limits of tier, falling back to the free tier.
func (v *Validator) Limits(tier string) config.TierLimits {
	if t, ok := v.tiers[strings.ToLower(tier)]; ok {
		return t
	}
	return v.tiers[TierFree]
}

// ValidatePlanCreation checks, in order, the requested length, the number of
// open plans and the hourly creation ceiling. The first failure wins.
func (v *Validator) ValidatePlanCreation(ctx context.Context, userID string, totalDays int, tier string) (Result, error) {
	limits := v.Limits(tier)

	if totalDays < 1 {
		return Result{
			Reason: "a plan must have at least one day",
			Code:   CodeInvalidDays,
			Limit:  limits.MaxDaysPerPlan,
		}, nil
	}
	if totalDays > limits.MaxDaysPerPlan {
		return Result{
			Reason:  fmt.Sprintf("plans on your tier can be at most %d days long", limits.MaxDaysPerPlan),
			Code:    CodeMaxDays,
			Current: totalDays,
			Limit:   limits.MaxDaysPerPlan,
		}, nil
	}

	open, err := v.plans.CountByOwnerAndStatus(ctx, userID, domain.PlanStatusActive, domain.PlanStatusPaused)
	if err != nil {
		return Result{}, fmt.Errorf("count open plans: %w", err)
	}
	if open >= limits.MaxConcurrentPlans {
		return Result{
			Reason:  fmt.Sprintf("you already have %d active plans; finish or cancel one first", open),
			Code:    CodeConcurrentPlans,
			Current: open,
			Limit:   limits.MaxConcurrentPlans,
		}, nil
	}

	recent, err := v.plans.CountCreatedSince(ctx, userID, v.clock.Now().Add(-time.Hour))
	if err != nil {
		return Result{}, fmt.Errorf("count recent plans: %w", err)
	}
	if recent >= limits.MaxPlansPerHour {
		return Result{
			Reason:  "too many plans created in the last hour, try again later",
			Code:    CodeHourlyCreation,
			Current: recent,
			Limit:   limits.MaxPlansPerHour,
		}, nil
	}

	return Result{OK: true}, nil
}
