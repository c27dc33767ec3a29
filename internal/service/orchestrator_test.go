package service

import (
	"alcyxob/wellness-app/internal/activity"
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/generator"
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/memoryctx"
	"alcyxob/wellness-app/internal/quota"
	"alcyxob/wellness-app/internal/ratelimit"
	"alcyxob/wellness-app/internal/repository/memory"
	"alcyxob/wellness-app/internal/strategy"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// t0 is a Monday morning.
var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

const workoutJSON = `{"title":"Full body","muscleGroups":["full_body"],"exercises":[
	{"name":"Squat","category":"main","sets":3,"reps":"12"},
	{"name":"Push-up","category":"main","sets":3,"reps":"10"}]}`

const mealJSON = `{"title":"Simple day","meals":[
	{"type":"breakfast","name":"Porridge","nutrition":{"calories":400}},
	{"type":"dinner","name":"Stir fry","nutrition":{"calories":700}}]}`

// scriptedGenerator answers every request with valid content unless the day
// is listed in fail.
type scriptedGenerator struct {
	mu    sync.Mutex
	fail  map[int]error
	hook  func(req generator.Request)
	calls []generator.Request
}

func (g *scriptedGenerator) GenerateDay(_ context.Context, req generator.Request) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	err := g.fail[req.DayNumber]
	hook := g.hook
	g.mu.Unlock()

	if hook != nil {
		hook(req)
	}
	if err != nil {
		return "", err
	}
	if req.Kind == domain.PlanKindNutrition {
		return mealJSON, nil
	}
	return workoutJSON, nil
}

func (g *scriptedGenerator) Calls() []generator.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generator.Request(nil), g.calls...)
}

type harness struct {
	clock    *clock.Fake
	plans    *memory.PlanRepository
	days     *memory.DayRepository
	exports  *memory.ExportRepository
	activity *memory.ActivityStore
	ledger   *activity.Ledger
	limiter  *ratelimit.Limiter
	memory   *memoryctx.Aggregator
	gen      *scriptedGenerator
	orch     *Orchestrator
}

func newHarness(t *testing.T, cfg config.OrchestratorConfig) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewFake(t0),
		plans:    memory.NewPlanRepository(),
		days:     memory.NewDayRepository(),
		exports:  memory.NewExportRepository(),
		activity: memory.NewActivityStore(),
		gen:      &scriptedGenerator{fail: map[int]error{}},
	}
	h.ledger = activity.NewLedger(h.activity, h.clock, nil)
	h.limiter = ratelimit.NewLimiter(h.ledger, ratelimit.LimitsFromConfig(nil), nil)
	h.memory = memoryctx.NewAggregator(h.days, h.clock)
	h.orch = NewOrchestrator(OrchestratorDeps{
		Plans:      h.plans,
		Days:       h.days,
		Quota:      quota.NewValidator(h.plans, nil, h.clock),
		Limiter:    h.limiter,
		Fraud:      ratelimit.NewFraudDetector(h.ledger, ratelimit.FraudSettingsFromConfig(config.FraudConfig{}), nil),
		Ledger:     h.ledger,
		Memory:     h.memory,
		Strategies: []ContentStrategy{strategy.NewExercise(h.gen), strategy.NewNutrition(h.gen)},
		Clock:      h.clock,
	}, cfg)
	return h
}

func homePlan(days int) PlanRequest {
	return PlanRequest{
		UserID:     "u1",
		Tier:       quota.TierFree,
		Kind:       domain.PlanKindExercise,
		Name:       "Home strength",
		TotalDays:  days,
		Difficulty: domain.DifficultyBeginner,
		Category:   "home",
		Settings:   domain.PlanSettings{RestDays: []string{"saturday", "sunday"}, AutoAdapt: true},
	}
}

func (h *harness) count(t *testing.T, kind domain.ActionKind) int {
	t.Helper()
	n, err := h.activity.CountSince(context.Background(), "u1", kind, time.Time{})
	require.NoError(t, err)
	return n
}

func TestCreateThirtyDayPlan(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.Defaults().Orchestrator)

	res, err := h.orch.Create(ctx, homePlan(30))
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationReady, res.Status)
	assert.Equal(t, 30, res.GeneratedDays)
	assert.False(t, res.Degraded)
	assert.Zero(t, res.FallbackDays)

	days, err := h.days.ListByPlan(ctx, res.PlanID)
	require.NoError(t, err)
	require.Len(t, days, 30)

	types := map[domain.DayType]int{}
	sources := map[domain.GenerationSource]int{}
	for i, d := range days {
		assert.Equal(t, i+1, d.DayNumber)
		assert.Equal(t, domain.DayKey(i+1), d.Key)
		assert.Equal(t, domain.CompletionNotStarted, d.Completion.Status)
		assert.Equal(t, d.Content.ItemCount(), d.Completion.TotalItems)
		types[d.Type]++
		sources[d.GenerationSource]++
	}
	assert.Equal(t, 21, types[domain.DayTypeWorkout])
	assert.Equal(t, 4, types[domain.DayTypeRest])
	assert.Equal(t, 4, types[domain.DayTypeActiveRecovery])
	assert.Equal(t, 1, types[domain.DayTypeAssessment])
	assert.Equal(t, domain.DayTypeAssessment, days[29].Type)
	assert.Equal(t, 22, sources[domain.SourceGenerated])
	assert.Equal(t, 8, sources[domain.SourceSynthesized])

	calls := h.gen.Calls()
	require.Len(t, calls, 22)
	assert.Contains(t, calls[0].MemoryContext, "first day")
	assert.NotContains(t, calls[1].MemoryContext, "first day")

	plan, err := h.plans.GetByID(ctx, res.PlanID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationReady, plan.Generation.Status)
	assert.Equal(t, 30, plan.Generation.GeneratedDays)
	assert.NotEmpty(t, plan.Generation.RunID)
	assert.NotNil(t, plan.Generation.FinishedAt)
	assert.Equal(t, 1, plan.CurrentDay)

	assert.Equal(t, 1, h.count(t, domain.ActionPlanCreation))
	assert.Equal(t, 30, h.count(t, domain.ActionDayCreation))

	// days 11 and 21 each hit the 10 per minute day_creation limit once
	waits := 0
	for _, d := range h.clock.Sleeps() {
		if d == time.Minute {
			waits++
		}
	}
	assert.Equal(t, 2, waits)
}

func TestCreateFallsBackWhenGenerationFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})
	h.gen.fail[3] = &generator.GenerationError{Stage: generator.StageStatus, StatusCode: 502, Err: errors.New("bad gateway")}

	res, err := h.orch.Create(ctx, homePlan(5))
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationReady, res.Status)
	assert.True(t, res.Degraded)
	assert.Equal(t, 1, res.FallbackDays)

	d, err := h.days.GetByNumber(ctx, res.PlanID, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, d.GenerationSource)
	assert.Contains(t, d.GenerationError, "502")
	require.NotNil(t, d.Content.Workout)
	assert.NotEmpty(t, d.Content.Workout.Exercises)

	other, err := h.days.GetByNumber(ctx, res.PlanID, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGenerated, other.GenerationSource)
	require.NotNil(t, other.MemorySnapshot)
	assert.Equal(t, 4, other.MemorySnapshot.UpcomingDay)
}

func TestFallbackLogLevelFollowsCause(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t, config.OrchestratorConfig{})
	h.orch.log = logger.FromZap(zap.New(core))
	h.gen.fail[2] = &generator.GenerationError{Stage: generator.StageTransport, Err: errors.New("connection reset")}
	h.gen.fail[3] = errors.New("strategy bug")

	_, err := h.orch.Create(context.Background(), homePlan(4))
	require.NoError(t, err)

	fallbacks := logs.FilterMessage("day generation failed, using fallback").All()
	require.Len(t, fallbacks, 2)
	assert.Equal(t, zapcore.WarnLevel, fallbacks[0].Level)
	assert.EqualValues(t, 2, fallbacks[0].ContextMap()["day"])
	assert.Equal(t, zapcore.ErrorLevel, fallbacks[1].Level)
	assert.EqualValues(t, 3, fallbacks[1].ContextMap()["day"])
}

func TestStartRejectionsWriteNothing(t *testing.T) {
	tests := []struct {
		name  string
		prep  func(h *harness)
		req   func() PlanRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "too many days for tier",
			req:  func() PlanRequest { return homePlan(31) },
			check: func(t *testing.T, err error) {
				var qe *QuotaExceededError
				require.ErrorAs(t, err, &qe)
				assert.Equal(t, quota.CodeMaxDays, qe.Code)
				assert.Equal(t, 31, qe.Current)
				assert.Equal(t, 30, qe.Limit)
			},
		},
		{
			name: "plan creation rate",
			prep: func(h *harness) {
				h.ledger.Record(context.Background(), "u1", domain.ActionPlanCreation, nil)
				h.ledger.Record(context.Background(), "u1", domain.ActionPlanCreation, nil)
			},
			req: func() PlanRequest { return homePlan(7) },
			check: func(t *testing.T, err error) {
				var rl *RateLimitedError
				require.ErrorAs(t, err, &rl)
				assert.Equal(t, domain.ActionPlanCreation, rl.Action)
				assert.Equal(t, ratelimit.WindowMinute, rl.Window)
				assert.Equal(t, time.Minute, rl.RetryAfter)
			},
		},
		{
			name: "suspicious volume",
			prep: func(h *harness) {
				for i := 0; i < 51; i++ {
					h.ledger.Record(context.Background(), "u1", domain.ActionDayCompletion, nil)
					h.clock.Advance(30 * time.Second)
				}
			},
			req: func() PlanRequest { return homePlan(7) },
			check: func(t *testing.T, err error) {
				var se *SuspiciousActivityError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, ratelimit.ReasonVolume, se.Reason)
				assert.Equal(t, time.Hour, se.CoolDown)
			},
		},
		{
			name: "unknown kind",
			req: func() PlanRequest {
				r := homePlan(7)
				r.Kind = "meditation"
				return r
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnsupportedKind)
			},
		},
		{
			name: "bad rest day",
			req: func() PlanRequest {
				r := homePlan(7)
				r.Settings.RestDays = []string{"funday"}
				return r
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidPlanRequest)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, config.OrchestratorConfig{})
			if tt.prep != nil {
				tt.prep(h)
			}
			before := h.count(t, domain.ActionPlanCreation)

			plan, err := h.orch.Start(context.Background(), tt.req())
			require.Error(t, err)
			assert.Nil(t, plan)
			tt.check(t, err)

			plans, err := h.plans.ListByOwner(context.Background(), "u1")
			require.NoError(t, err)
			assert.Empty(t, plans)
			assert.Equal(t, before, h.count(t, domain.ActionPlanCreation))
			assert.Empty(t, h.gen.Calls())
		})
	}
}

func TestStartDefaultsAndPendingGeneration(t *testing.T) {
	h := newHarness(t, config.OrchestratorConfig{})
	req := homePlan(7)
	req.Difficulty = ""

	plan, err := h.orch.Start(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.DifficultyBeginner, plan.Difficulty)
	assert.Equal(t, domain.GenerationPending, plan.Generation.Status)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), plan.StartDate)
	assert.Equal(t, domain.PlanStatusActive, plan.Status)
	assert.Equal(t, 1, plan.CurrentDay)
}

func TestRunTreatsDuplicateDayAsPersisted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})
	plan, err := h.orch.Start(ctx, homePlan(3))
	require.NoError(t, err)

	existing := &domain.Day{
		PlanID:    plan.ID,
		OwnerID:   plan.OwnerID,
		DayNumber: 2,
		Type:      domain.DayTypeWorkout,
		Content:   domain.DayContent{Workout: &domain.WorkoutContent{Title: "Already here"}},
	}
	_, err = h.days.Create(ctx, existing)
	require.NoError(t, err)

	res, err := h.orch.Generate(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationReady, res.Status)
	assert.Equal(t, 3, res.GeneratedDays)

	d, err := h.days.GetByNumber(ctx, plan.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Already here", d.Content.Workout.Title)
	// only the two new days are recorded
	assert.Equal(t, 2, h.count(t, domain.ActionDayCreation))
}

func TestRunStopsOnLongRateLimitAndResumes(t *testing.T) {
	ctx := context.Background()
	cfg := config.OrchestratorConfig{MaxRateLimitWait: 30 * time.Second}
	h := newHarness(t, cfg)

	res, err := h.orch.Create(ctx, homePlan(12))
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, domain.ActionDayCreation, rl.Action)
	require.NotNil(t, res)
	assert.Equal(t, domain.GenerationPartial, res.Status)
	assert.Equal(t, 10, res.GeneratedDays)

	plan, err := h.plans.GetByID(ctx, res.PlanID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationPartial, plan.Generation.Status)
	assert.Contains(t, plan.Generation.LastError, "rate limited")
	require.NoError(t, Resumable(plan))

	h.clock.Advance(2 * time.Minute)
	res, err = h.orch.Resume(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationReady, res.Status)
	assert.Equal(t, 12, res.GeneratedDays)

	days, err := h.days.ListByPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, days, 12)
	assert.Equal(t, 12, h.count(t, domain.ActionDayCreation))

	plan, err = h.plans.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, Resumable(plan), ErrNotResumable)
}

func TestRunRetriesShortRateLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})

	res, err := h.orch.Create(ctx, homePlan(11))
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationReady, res.Status)
	// no pacing configured, so the only sleep is the rate-limit wait
	assert.Equal(t, []time.Duration{time.Minute}, h.clock.Sleeps())
}

func TestRunCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, config.OrchestratorConfig{})
	h.gen.hook = func(req generator.Request) {
		if req.DayNumber == 2 {
			cancel()
		}
	}
	h.gen.fail[2] = context.Canceled

	res, err := h.orch.Create(ctx, homePlan(5))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.GenerationPartial, res.Status)
	assert.Equal(t, 1, res.GeneratedDays)

	// the final state is written despite the cancelled context
	plan, err := h.plans.GetByID(context.Background(), res.PlanID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationPartial, plan.Generation.Status)
	assert.Equal(t, 1, plan.Generation.GeneratedDays)

	_, err = h.days.GetByNumber(context.Background(), res.PlanID, 2)
	assert.Error(t, err)
}

func TestRunStopsWhenPlanDeleted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})
	plan, err := h.orch.Start(ctx, homePlan(10))
	require.NoError(t, err)

	h.gen.hook = func(req generator.Request) {
		if req.DayNumber == 3 {
			_, _ = h.days.DeleteByPlan(context.Background(), plan.ID)
			require.NoError(t, h.plans.Delete(context.Background(), plan.ID, plan.OwnerID))
		}
	}

	res, err := h.orch.Generate(ctx, plan)
	require.ErrorIs(t, err, ErrPlanNotFound)
	assert.Equal(t, domain.GenerationPartial, res.Status)
	assert.Len(t, h.gen.Calls(), 3)

	days, err := h.days.ListByPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestRunStopsWhenPlanCancelled(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})
	plan, err := h.orch.Start(ctx, homePlan(10))
	require.NoError(t, err)

	h.gen.hook = func(req generator.Request) {
		if req.DayNumber == 3 {
			require.NoError(t, h.plans.UpdateStatus(context.Background(), plan.ID, domain.PlanStatusCancelled))
		}
	}

	res, err := h.orch.Generate(ctx, plan)
	require.ErrorIs(t, err, ErrPlanClosed)
	assert.Equal(t, domain.GenerationPartial, res.Status)
	assert.Equal(t, 3, res.GeneratedDays)
	assert.Len(t, h.gen.Calls(), 3)
	assert.Equal(t, 3, h.count(t, domain.ActionDayCreation))

	stored, err := h.plans.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationPartial, stored.Generation.Status)
	assert.Contains(t, stored.Generation.LastError, "cancelled")
}

func TestRunContinuesWhilePaused(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})
	plan, err := h.orch.Start(ctx, homePlan(5))
	require.NoError(t, err)
	require.NoError(t, h.plans.UpdateStatus(ctx, plan.ID, domain.PlanStatusPaused))

	res, err := h.orch.Generate(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, domain.GenerationReady, res.Status)
	assert.Equal(t, 5, res.GeneratedDays)
}

func TestNutritionPlanRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})
	req := homePlan(8)
	req.Kind = domain.PlanKindNutrition
	req.Settings = domain.PlanSettings{MealsPerDay: 3}
	h.gen.fail[2] = errors.New("connection reset")

	res, err := h.orch.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 8, res.GeneratedDays)
	assert.Equal(t, 1, res.FallbackDays)

	prep, err := h.days.GetByNumber(ctx, res.PlanID, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.DayTypePrep, prep.Type)

	fb, err := h.days.GetByNumber(ctx, res.PlanID, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, fb.GenerationSource)
	require.NotNil(t, fb.Content.Nutrition)
	assert.Len(t, fb.Content.Nutrition.Meals, 3)
}

func TestResumeRejectsFinishedPlan(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, config.OrchestratorConfig{})
	res, err := h.orch.Create(ctx, homePlan(2))
	require.NoError(t, err)

	_, err = h.orch.Resume(ctx, res.PlanID)
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestContiguous(t *testing.T) {
	days := func(ns ...int) []domain.Day {
		out := make([]domain.Day, 0, len(ns))
		for _, n := range ns {
			out = append(out, domain.Day{DayNumber: n})
		}
		return out
	}
	assert.Equal(t, 0, contiguous(nil))
	assert.Equal(t, 3, contiguous(days(1, 2, 3)))
	assert.Equal(t, 2, contiguous(days(1, 2, 4, 5)))
	assert.Equal(t, 0, contiguous(days(2, 3)))
}
