package strategy

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/generator"
	"context"
	"fmt"
)

// DefaultPrepEvery is the prep-day cadence used when the plan does not set one.
const DefaultPrepEvery = 7

// Nutrition builds meal-plan days.
type Nutrition struct {
	gen DayGenerator
}

func NewNutrition(gen DayGenerator) *Nutrition {
	return &Nutrition{gen: gen}
}

func (s *Nutrition) Kind() domain.PlanKind { return domain.PlanKindNutrition }

func prepEvery(settings domain.PlanSettings) int {
	switch {
	case settings.PrepEvery < 0:
		return 0
	case settings.PrepEvery == 0:
		return DefaultPrepEvery
	}
	return settings.PrepEvery
}

// ClassifyDay marks the final day as an assessment and every prepEvery-th day
// as a prep day. Everything else is a regular meal plan.
func (s *Nutrition) ClassifyDay(plan *domain.Plan, dayNumber int) domain.DayType {
	if dayNumber == plan.TotalDays && plan.TotalDays > 1 {
		return domain.DayTypeAssessment
	}
	if every := prepEvery(plan.Settings); every > 0 && dayNumber%every == 0 {
		return domain.DayTypePrep
	}
	return domain.DayTypeMealPlan
}

// Generative is true for every nutrition day type; people eat on every day.
func (s *Nutrition) Generative(t domain.DayType) bool {
	return true
}

func (s *Nutrition) Synthesize(plan *domain.Plan, dayNumber int, t domain.DayType) domain.DayContent {
	return s.Fallback(plan, dayNumber, t)
}

func (s *Nutrition) Generate(ctx context.Context, plan *domain.Plan, dayNumber int, t domain.DayType, mc *domain.MemoryContext) (*Generated, error) {
	raw, err := s.gen.GenerateDay(ctx, baseRequest(plan, dayNumber, t, mc))
	if err != nil {
		return nil, err
	}
	n, err := generator.ParseNutrition(raw)
	if err != nil {
		return nil, schemaFailure(err)
	}
	return &Generated{
		Content:     domain.DayContent{Nutrition: n},
		Suggestions: nutritionSuggestions(plan, n),
	}, nil
}

func (s *Nutrition) Fallback(plan *domain.Plan, dayNumber int, t domain.DayType) domain.DayContent {
	n := FallbackNutrition(dayNumber, plan.Profile, plan.Settings.MealsPerDay)
	if t == domain.DayTypePrep {
		n.Title = "Prep day: " + n.Title
		n.Description = "Cook grains and proteins in bulk today for the next few days."
	}
	return domain.DayContent{Nutrition: n}
}

// calorieTolerance is how far a day may drift from the target before a
// correction is suggested.
const calorieTolerance = 0.15

func nutritionSuggestions(plan *domain.Plan, n *domain.NutritionContent) []string {
	var out []string
	target := plan.Profile.DailyCalorieTarget
	if target > 0 && n.TotalCalories > 0 {
		drift := float64(n.TotalCalories-target) / float64(target)
		switch {
		case drift > calorieTolerance:
			out = append(out, fmt.Sprintf("Today was %d kcal over target; plan lighter portions", n.TotalCalories-target))
		case drift < -calorieTolerance:
			out = append(out, fmt.Sprintf("Today was %d kcal under target; add a snack", target-n.TotalCalories))
		}
	}
	if len(n.Meals) > 0 {
		out = append(out, "Use a different main ingredient than "+n.Meals[len(n.Meals)-1].Name)
	}
	return out
}
