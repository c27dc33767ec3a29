package strategy

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/generator"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// defaultRestDays maps sessions per week to rest weekdays when the plan has
// no explicit schedule.
var defaultRestDays = map[int][]time.Weekday{
	1: {time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday},
	2: {time.Tuesday, time.Wednesday, time.Friday, time.Saturday, time.Sunday},
	3: {time.Tuesday, time.Thursday, time.Saturday, time.Sunday},
	4: {time.Wednesday, time.Saturday, time.Sunday},
	5: {time.Saturday, time.Sunday},
	6: {time.Sunday},
}

// Exercise builds workout days.
type Exercise struct {
	gen DayGenerator
}

func NewExercise(gen DayGenerator) *Exercise {
	return &Exercise{gen: gen}
}

func (s *Exercise) Kind() domain.PlanKind { return domain.PlanKindExercise }

// RestWeekdays returns the plan's rest schedule, explicit or derived from
// DaysPerWeek.
func RestWeekdays(settings domain.PlanSettings) map[time.Weekday]bool {
	out := map[time.Weekday]bool{}
	if len(settings.RestDays) > 0 {
		for _, name := range settings.RestDays {
			if d, ok := ParseWeekday(name); ok {
				out[d] = true
			}
		}
		return out
	}
	for _, d := range defaultRestDays[settings.DaysPerWeek] {
		out[d] = true
	}
	return out
}

// ClassifyDay puts scheduled rest first: a rest weekday is rest, or active
// recovery when the day before was also a rest day. The last non-rest day is
// an assessment.
func (s *Exercise) ClassifyDay(plan *domain.Plan, dayNumber int) domain.DayType {
	rest := RestWeekdays(plan.Settings)
	if rest[plan.DayDate(dayNumber).Weekday()] {
		if dayNumber > 1 && rest[plan.DayDate(dayNumber-1).Weekday()] {
			return domain.DayTypeActiveRecovery
		}
		return domain.DayTypeRest
	}
	if dayNumber == plan.TotalDays && plan.TotalDays > 1 {
		return domain.DayTypeAssessment
	}
	return domain.DayTypeWorkout
}

func (s *Exercise) Generative(t domain.DayType) bool {
	return t == domain.DayTypeWorkout || t == domain.DayTypeAssessment
}

// Synthesize builds rest and active recovery days without the generator.
func (s *Exercise) Synthesize(plan *domain.Plan, dayNumber int, t domain.DayType) domain.DayContent {
	if t == domain.DayTypeActiveRecovery {
		return domain.DayContent{Workout: activeRecoveryWorkout()}
	}
	return domain.DayContent{Workout: &domain.WorkoutContent{
		Title:        "Rest day",
		Description:  "Recover fully today. Stay hydrated and sleep well.",
		MuscleGroups: []string{},
		WorkoutType:  "rest",
		Exercises:    []domain.Exercise{},
	}}
}

func (s *Exercise) Generate(ctx context.Context, plan *domain.Plan, dayNumber int, t domain.DayType, mc *domain.MemoryContext) (*Generated, error) {
	raw, err := s.gen.GenerateDay(ctx, baseRequest(plan, dayNumber, t, mc))
	if err != nil {
		return nil, err
	}
	w, err := generator.ParseWorkout(raw)
	if err != nil {
		return nil, schemaFailure(err)
	}
	return &Generated{
		Content:     domain.DayContent{Workout: w},
		Suggestions: workoutSuggestions(w, mc),
	}, nil
}

func (s *Exercise) Fallback(plan *domain.Plan, dayNumber int, t domain.DayType) domain.DayContent {
	if !s.Generative(t) {
		return s.Synthesize(plan, dayNumber, t)
	}
	if t == domain.DayTypeAssessment {
		return domain.DayContent{Workout: FallbackAssessment(plan.Profile)}
	}
	return domain.DayContent{Workout: FallbackWorkout(dayNumber, plan.Profile, plan.Difficulty)}
}

// loadDivisor scales TrainingLoad so a typical beginner session lands near 10.
const loadDivisor = 10.0

// highLoad is the TrainingLoad above which a recovery hint is added.
const highLoad = 20.0

// TrainingLoad is a rough monotonic score of a session: sets times reps of
// the main block, scaled down. Timed or ranged reps count by their first
// number.
func TrainingLoad(w *domain.WorkoutContent) float64 {
	if w == nil {
		return 0
	}
	var total float64
	for _, e := range w.Exercises {
		if e.Category != domain.CategoryMain {
			continue
		}
		total += float64(e.Sets * leadingInt(e.Reps))
	}
	return total / loadDivisor
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

func workoutSuggestions(w *domain.WorkoutContent, mc *domain.MemoryContext) []string {
	var out []string
	if len(w.MuscleGroups) > 0 {
		out = append(out, "Train different muscle groups than "+strings.Join(w.MuscleGroups, ", "))
	}
	if load := TrainingLoad(w); load >= highLoad {
		out = append(out, fmt.Sprintf("Session load %.0f is high; keep the next session lighter", load))
	}
	if mc != nil && mc.DifficultyTrend == domain.DifficultyIncrease {
		out = append(out, "Try the harder variation of one main exercise")
	}
	return out
}
