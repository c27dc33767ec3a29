// Package memoryctx derives the cross-day memory context used to keep newly
// generated days coherent with a plan's recent history. It only reads.
package memoryctx

import (
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultLookBack = 5
	// summaryWindow bounds how many days feed the plan-level summary.
	summaryWindow = 14

	trendThreshold      = 0.5
	inconsistentBelow   = 0.6
	consistentAbove     = 0.8
	increaseRatingAtMin = 4.0
	decreaseRatingAtMax = 2.5
	preferredMinScore   = 8
)

// Aggregator builds memory contexts from stored days.
type Aggregator struct {
	days  repository.DayRepository
	clock clock.Clock
}

func NewAggregator(days repository.DayRepository, clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.Real()
	}
	return &Aggregator{days: days, clock: clk}
}

// BuildContext reads days [max(1, upcoming-lookBack), upcoming-1] and derives
// trends, preferences and recommendations from them. When no prior day exists
// it returns the first-day context rather than an error.
func (a *Aggregator) BuildContext(ctx context.Context, planID primitive.ObjectID, upcomingDay, lookBack int) (*domain.MemoryContext, error) {
	if lookBack <= 0 {
		lookBack = DefaultLookBack
	}
	to := upcomingDay - 1
	if to < 1 {
		return firstDay(upcomingDay), nil
	}
	from := max(1, upcomingDay-lookBack)

	days, err := a.days.ListRange(ctx, planID, from, to)
	if err != nil {
		return nil, fmt.Errorf("read days %d-%d: %w", from, to, err)
	}
	if len(days) == 0 {
		return firstDay(upcomingDay), nil
	}

	mc := a.analyze(days)
	mc.UpcomingDay = upcomingDay
	mc.WindowStart = from
	mc.WindowEnd = to
	return mc, nil
}

// Summarize computes the plan-level rollup over the most recent days up to
// the last one the user finished or skipped. It returns nil when the user has
// not acted on any day yet.
func (a *Aggregator) Summarize(ctx context.Context, plan *domain.Plan) (*domain.MemorySummary, error) {
	days, err := a.days.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, fmt.Errorf("read days: %w", err)
	}
	through := 0
	for _, d := range days {
		if d.Completion.Status != domain.CompletionNotStarted && d.DayNumber > through {
			through = d.DayNumber
		}
	}
	if through == 0 {
		return nil, nil
	}

	// newest first, bounded to the summary window
	window := make([]domain.Day, 0, summaryWindow)
	for i := len(days) - 1; i >= 0 && len(window) < summaryWindow; i-- {
		if days[i].DayNumber <= through {
			window = append(window, days[i])
		}
	}
	mc := a.analyze(window)

	// Session length follows the latest finished days even when recent skips
	// or rest days push them out of the window.
	finished, err := a.days.ListRecentCompleted(ctx, plan.ID, summaryWindow)
	if err != nil {
		return nil, fmt.Errorf("read completed days: %w", err)
	}
	return &domain.MemorySummary{
		PerformanceTrend:         mc.PerformanceTrend,
		ConsistencyPattern:       mc.ConsistencyPattern,
		DifficultyTrend:          mc.DifficultyTrend,
		Preferences:              mc.Preferences,
		Avoid:                    mc.Avoid,
		PreferredDurationMinutes: preferredDuration(finished),
		ThroughDay:               through,
		UpdatedAt:                a.clock.Now(),
	}, nil
}

func firstDay(upcoming int) *domain.MemoryContext {
	return &domain.MemoryContext{
		FirstDay:           true,
		UpcomingDay:        upcoming,
		PerformanceTrend:   domain.TrendStable,
		ConsistencyPattern: domain.ConsistencyConsistent,
		DifficultyTrend:    domain.DifficultyMaintain,
	}
}

// analyze expects days newest first.
func (a *Aggregator) analyze(days []domain.Day) *domain.MemoryContext {
	mc := &domain.MemoryContext{
		RecentDays: make([]domain.DaySnapshot, 0, len(days)),
	}
	for _, d := range days {
		mc.RecentDays = append(mc.RecentDays, snapshot(d))
	}

	mc.PerformanceTrend = performanceTrend(days)
	due := a.dueDays(days)
	mc.ConsistencyPattern, mc.CompletionRate = consistency(due)
	mc.DifficultyTrend = difficultyTrend(days)
	mc.Avoid = avoidList(days)
	mc.Preferences = preferences(days, mc.Avoid)
	mc.PreferredDurationMinutes = preferredDuration(days)
	mc.Recommendations = recommend(mc, kindOf(days), len(due) > 0)
	return mc
}

func snapshot(d domain.Day) domain.DaySnapshot {
	return domain.DaySnapshot{
		DayNumber:    d.DayNumber,
		Type:         d.Type,
		Title:        d.Content.Title(),
		Focus:        d.Content.Focus(),
		Items:        d.Content.ItemNames(),
		Status:       d.Completion.Status,
		Rating:       d.Completion.Rating,
		Energy:       d.Performance.Energy,
		Satisfaction: d.Performance.Satisfaction,
	}
}

// performanceTrend compares the mean of the older half of the samples with
// the newer half. Energy is preferred, satisfaction is used when energy is
// missing.
func performanceTrend(days []domain.Day) string {
	var samples []float64
	for i := len(days) - 1; i >= 0; i-- {
		p := days[i].Performance
		switch {
		case p.Energy > 0:
			samples = append(samples, float64(p.Energy))
		case p.Satisfaction > 0:
			samples = append(samples, float64(p.Satisfaction))
		}
	}
	if len(samples) < 2 {
		return domain.TrendStable
	}
	half := len(samples) / 2
	diff := mean(samples[half:]) - mean(samples[:half])
	switch {
	case diff > trendThreshold:
		return domain.TrendImproving
	case diff < -trendThreshold:
		return domain.TrendDeclining
	}
	return domain.TrendStable
}

// dueDays keeps the training days the user could have acted on: those already
// touched and those dated before today.
func (a *Aggregator) dueDays(days []domain.Day) []domain.Day {
	now := a.clock.Now()
	today := now.Truncate(24 * time.Hour)
	var out []domain.Day
	for _, d := range days {
		if d.Type.IsRestLike() {
			continue
		}
		if d.Completion.Status != domain.CompletionNotStarted || (!d.Date.IsZero() && d.Date.Before(today)) {
			out = append(out, d)
		}
	}
	return out
}

func consistency(due []domain.Day) (string, float64) {
	if len(due) == 0 {
		return domain.ConsistencyConsistent, 0
	}
	done := 0
	for _, d := range due {
		if d.Completion.IsDone() {
			done++
		}
	}
	ratio := float64(done) / float64(len(due))
	switch {
	case ratio < inconsistentBelow:
		return domain.ConsistencyInconsistent, ratio
	case ratio > consistentAbove:
		return domain.ConsistencyConsistent, ratio
	}
	return domain.ConsistencyImproving, ratio
}

func difficultyTrend(days []domain.Day) string {
	var hard, easy, mods int
	var ratings []float64
	for _, d := range days {
		if d.Completion.Rating > 0 {
			ratings = append(ratings, float64(d.Completion.Rating))
		}
		for _, m := range d.Performance.Modifications {
			mods++
			switch m.Reason {
			case domain.ModReasonTooDifficult:
				hard++
			case domain.ModReasonTooEasy:
				easy++
			}
		}
	}
	if mods > 0 && hard*2 > mods {
		return domain.DifficultyDecrease
	}
	if mods > 0 && easy*2 > mods {
		return domain.DifficultyIncrease
	}
	if len(ratings) == 0 {
		return domain.DifficultyMaintain
	}
	avg := mean(ratings)
	switch {
	case avg >= increaseRatingAtMin:
		return domain.DifficultyIncrease
	case avg <= decreaseRatingAtMax:
		return domain.DifficultyDecrease
	}
	return domain.DifficultyMaintain
}

func avoidList(days []domain.Day) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range days {
		for _, m := range d.Performance.Modifications {
			key := normalize(m.Item)
			if key == "" || !m.IsAvoidance() || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m.Item)
		}
	}
	return out
}

type scored struct {
	name  string
	best  int
	count int
}

// preferences ranks highly rated items by best score, then by how often they
// were rated highly.
func preferences(days []domain.Day, avoid []string) []string {
	excluded := map[string]bool{}
	for _, a := range avoid {
		excluded[normalize(a)] = true
	}
	byKey := map[string]*scored{}
	for _, d := range days {
		for _, s := range d.Performance.ItemScores {
			key := normalize(s.Name)
			if key == "" || excluded[key] || s.Satisfaction < preferredMinScore {
				continue
			}
			e, ok := byKey[key]
			if !ok {
				e = &scored{name: s.Name}
				byKey[key] = e
			}
			e.count++
			if s.Satisfaction > e.best {
				e.best = s.Satisfaction
			}
		}
	}
	ranked := make([]*scored, 0, len(byKey))
	for _, e := range byKey {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].best != ranked[j].best {
			return ranked[i].best > ranked[j].best
		}
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})
	out := make([]string, 0, len(ranked))
	for _, e := range ranked {
		out = append(out, e.name)
	}
	return out
}

func preferredDuration(days []domain.Day) int {
	var durations []float64
	for _, d := range days {
		if d.Completion.IsDone() && d.Completion.DurationMinutes > 0 {
			durations = append(durations, float64(d.Completion.DurationMinutes))
		}
	}
	if len(durations) == 0 {
		return 0
	}
	return int(mean(durations) + 0.5)
}

func kindOf(days []domain.Day) domain.PlanKind {
	for _, d := range days {
		if d.Content.Nutrition != nil {
			return domain.PlanKindNutrition
		}
		if d.Content.Workout != nil {
			return domain.PlanKindExercise
		}
	}
	return domain.PlanKindExercise
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
