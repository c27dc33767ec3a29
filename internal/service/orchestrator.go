package service

import (
	"alcyxob/wellness-app/internal/activity"
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/generator"
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/memoryctx"
	"alcyxob/wellness-app/internal/metrics"
	"alcyxob/wellness-app/internal/quota"
	"alcyxob/wellness-app/internal/ratelimit"
	"alcyxob/wellness-app/internal/repository"
	"alcyxob/wellness-app/internal/strategy"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentStrategy is everything kind-specific about building days.
type ContentStrategy interface {
	Kind() domain.PlanKind
	ClassifyDay(plan *domain.Plan, dayNumber int) domain.DayType
	// Generative reports whether days of type t go through the content service.
	Generative(t domain.DayType) bool
	Synthesize(plan *domain.Plan, dayNumber int, t domain.DayType) domain.DayContent
	Generate(ctx context.Context, plan *domain.Plan, dayNumber int, t domain.DayType, mc *domain.MemoryContext) (*strategy.Generated, error)
	Fallback(plan *domain.Plan, dayNumber int, t domain.DayType) domain.DayContent
}

// PlanRequest is a validated-on-entry request to create a plan.
type PlanRequest struct {
	UserID     string
	Tier       string
	Kind       domain.PlanKind
	Name       string
	TotalDays  int
	Difficulty domain.Difficulty
	Category   string
	Profile    domain.UserProfile
	Settings   domain.PlanSettings
	StartDate  time.Time // zero means today
}

// RunResult summarizes one generation run.
type RunResult struct {
	PlanID        primitive.ObjectID      `json:"planId"`
	Status        domain.GenerationStatus `json:"status"`
	Degraded      bool                    `json:"degraded"`
	GeneratedDays int                     `json:"generatedDays"`
	FallbackDays  int                     `json:"fallbackDays"`
}

// OrchestratorDeps are the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Plans      repository.PlanRepository
	Days       repository.DayRepository
	Quota      *quota.Validator
	Limiter    *ratelimit.Limiter
	Fraud      *ratelimit.FraudDetector
	Ledger     *activity.Ledger
	Memory     *memoryctx.Aggregator
	Strategies []ContentStrategy
	Clock      clock.Clock
	Log        *logger.Logger
}

// Orchestrator validates plan creation and drives the sequential day loop.
type Orchestrator struct {
	plans      repository.PlanRepository
	days       repository.DayRepository
	quota      *quota.Validator
	limiter    *ratelimit.Limiter
	fraud      *ratelimit.FraudDetector
	ledger     *activity.Ledger
	memory     *memoryctx.Aggregator
	strategies map[domain.PlanKind]ContentStrategy
	retry      RetryPolicy
	pacing     Pacing
	lookBack   int
	clock      clock.Clock
	log        *logger.Logger
}

func NewOrchestrator(deps OrchestratorDeps, cfg config.OrchestratorConfig) *Orchestrator {
	retry, pacing := policiesFromConfig(cfg)
	o := &Orchestrator{
		plans:      deps.Plans,
		days:       deps.Days,
		quota:      deps.Quota,
		limiter:    deps.Limiter,
		fraud:      deps.Fraud,
		ledger:     deps.Ledger,
		memory:     deps.Memory,
		strategies: make(map[domain.PlanKind]ContentStrategy),
		retry:      retry,
		pacing:     pacing,
		lookBack:   cfg.LookBack,
		clock:      deps.Clock,
		log:        deps.Log,
	}
	for _, s := range deps.Strategies {
		o.strategies[s.Kind()] = s
	}
	if o.clock == nil {
		o.clock = clock.Real()
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	return o
}

func (o *Orchestrator) strategyFor(kind domain.PlanKind) (ContentStrategy, error) {
	s, ok := o.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return s, nil
}

func (o *Orchestrator) validateRequest(req *PlanRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPlanRequest)
	}
	if _, err := o.strategyFor(req.Kind); err != nil {
		return err
	}
	switch req.Difficulty {
	case "":
		req.Difficulty = domain.DifficultyBeginner
	case domain.DifficultyBeginner, domain.DifficultyIntermediate, domain.DifficultyAdvanced:
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidPlanRequest, req.Difficulty)
	}
	if req.Settings.DaysPerWeek < 0 || req.Settings.DaysPerWeek > 7 {
		return fmt.Errorf("%w: daysPerWeek must be between 0 and 7", ErrInvalidPlanRequest)
	}
	for _, name := range req.Settings.RestDays {
		if _, ok := strategy.ParseWeekday(name); !ok {
			return fmt.Errorf("%w: unknown rest day %q", ErrInvalidPlanRequest, name)
		}
	}
	return nil
}

// Start runs the admission gate (quota, then plan_creation rate limit, then
// fraud) and creates the plan. Nothing is written when any gate rejects.
func (o *Orchestrator) Start(ctx context.Context, req PlanRequest) (*domain.Plan, error) {
	if err := o.validateRequest(&req); err != nil {
		metrics.PlanRejections.WithLabelValues("invalid").Inc()
		return nil, err
	}

	res, err := o.quota.ValidatePlanCreation(ctx, req.UserID, req.TotalDays, req.Tier)
	if err != nil {
		return nil, &PersistenceError{Op: "validate quota", Err: err}
	}
	if !res.OK {
		metrics.PlanRejections.WithLabelValues("quota").Inc()
		return nil, &QuotaExceededError{Reason: res.Reason, Code: res.Code, Current: res.Current, Limit: res.Limit}
	}

	if d := o.limiter.Check(ctx, req.UserID, domain.ActionPlanCreation); !d.Allowed {
		metrics.PlanRejections.WithLabelValues("rate_limited").Inc()
		return nil, rateLimited(domain.ActionPlanCreation, d)
	}

	if suspicious, reason := o.fraud.IsSuspicious(ctx, req.UserID); suspicious {
		metrics.PlanRejections.WithLabelValues("suspicious").Inc()
		o.log.Warn("plan creation blocked by fraud detector", "user", req.UserID, "reason", reason)
		return nil, &SuspiciousActivityError{Reason: reason, CoolDown: o.fraud.CoolDown()}
	}

	now := o.clock.Now()
	start := req.StartDate
	if start.IsZero() {
		start = now
	}
	plan := &domain.Plan{
		OwnerID:    req.UserID,
		Kind:       req.Kind,
		Name:       req.Name,
		TotalDays:  req.TotalDays,
		Difficulty: req.Difficulty,
		Category:   req.Category,
		Profile:    req.Profile,
		Settings:   req.Settings,
		StartDate:  time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		CurrentDay: 1,
		Status:     domain.PlanStatusActive,
		Generation: domain.PlanGeneration{Status: domain.GenerationPending},
		CreatedAt:  now,
	}
	if _, err := o.plans.Create(ctx, plan); err != nil {
		return nil, &PersistenceError{Op: "create plan", Err: err}
	}

	o.ledger.Record(ctx, req.UserID, domain.ActionPlanCreation, map[string]string{
		"planId":    plan.ID.Hex(),
		"kind":      string(plan.Kind),
		"totalDays": strconv.Itoa(plan.TotalDays),
	})
	metrics.PlansCreated.WithLabelValues(string(plan.Kind)).Inc()
	o.log.Info("plan created", "plan", plan.ID.Hex(), "user", plan.OwnerID, "kind", plan.Kind, "totalDays", plan.TotalDays)
	return plan, nil
}

// Create validates, creates and generates the plan in one call.
func (o *Orchestrator) Create(ctx context.Context, req PlanRequest) (*RunResult, error) {
	plan, err := o.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return o.Generate(ctx, plan)
}

// Generate builds every day of a freshly started plan.
func (o *Orchestrator) Generate(ctx context.Context, plan *domain.Plan) (*RunResult, error) {
	return o.run(ctx, plan, 1, 0)
}

// Resume continues a run that stopped early, starting right after the
// highest contiguous persisted day.
func (o *Orchestrator) Resume(ctx context.Context, planID primitive.ObjectID) (*RunResult, error) {
	plan, err := o.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, &PersistenceError{Op: "load plan", PlanID: planID, Err: err}
	}
	if err := Resumable(plan); err != nil {
		return nil, err
	}
	existing, err := o.days.ListByPlan(ctx, planID)
	if err != nil {
		return nil, &PersistenceError{Op: "list days", PlanID: planID, Err: err}
	}
	from := contiguous(existing) + 1
	return o.run(ctx, plan, from, plan.Generation.FallbackDays)
}

// Resumable reports why a plan's generation cannot be continued, or nil.
func Resumable(plan *domain.Plan) error {
	if !plan.IsOpen() {
		return fmt.Errorf("%w: plan is %s", ErrNotResumable, plan.Status)
	}
	switch plan.Generation.Status {
	case domain.GenerationPartial, domain.GenerationPending:
		return nil
	}
	return fmt.Errorf("%w: generation is %s", ErrNotResumable, plan.Generation.Status)
}

// contiguous returns the highest n such that days 1..n all exist.
func contiguous(days []domain.Day) int {
	have := make(map[int]bool, len(days))
	for _, d := range days {
		have[d.DayNumber] = true
	}
	n := 0
	for have[n+1] {
		n++
	}
	return n
}

func (o *Orchestrator) run(ctx context.Context, plan *domain.Plan, from, fallbackDays int) (*RunResult, error) {
	strat, err := o.strategyFor(plan.Kind)
	if err != nil {
		return nil, err
	}
	log := o.log.With("plan", plan.ID.Hex(), "user", plan.OwnerID)

	started := o.clock.Now()
	gen := domain.PlanGeneration{
		RunID:         uuid.NewString(),
		Status:        domain.GenerationGenerating,
		GeneratedDays: from - 1,
		FallbackDays:  fallbackDays,
		Degraded:      fallbackDays > 0,
		StartedAt:     &started,
	}
	if err := o.plans.UpdateGeneration(ctx, plan.ID, gen); err != nil {
		return nil, &PersistenceError{Op: "start generation", PlanID: plan.ID, Err: err}
	}
	log.Info("generation run started", "run", gen.RunID, "from", from, "totalDays", plan.TotalDays)

	var runErr error
	for day := from; day <= plan.TotalDays; day++ {
		if runErr = o.ensureOpen(ctx, plan.ID); runErr != nil {
			break
		}
		if runErr = o.awaitDayCreation(ctx, plan.OwnerID, log); runErr != nil {
			break
		}

		d, usedFallback, err := o.buildDay(ctx, strat, plan, day)
		if err != nil {
			runErr = err
			break
		}

		_, err = o.days.Create(ctx, d)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			log.Info("day already persisted, skipping", "day", day)
		case err != nil:
			runErr = &PersistenceError{Op: "create day", PlanID: plan.ID, DayNumber: day, Err: err}
		default:
			if usedFallback {
				gen.FallbackDays++
				gen.Degraded = true
			}
			metrics.DaysPersisted.WithLabelValues(string(plan.Kind), string(d.GenerationSource)).Inc()
			o.ledger.Record(ctx, plan.OwnerID, domain.ActionDayCreation, map[string]string{
				"planId": plan.ID.Hex(),
				"day":    strconv.Itoa(day),
			})
		}
		if runErr != nil {
			break
		}

		gen.GeneratedDays = day
		if err := o.plans.UpdateGeneration(ctx, plan.ID, gen); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				runErr = ErrPlanNotFound
				break
			}
			log.Warn("failed to record generation progress", "day", day, "error", err)
		}

		if delay := o.pacing.Delay(day); day < plan.TotalDays && delay > 0 {
			if runErr = o.clock.Sleep(ctx, delay); runErr != nil {
				break
			}
		}
	}

	finished := o.clock.Now()
	gen.FinishedAt = &finished
	gen.Status = domain.GenerationReady
	if gen.GeneratedDays < plan.TotalDays {
		gen.Status = domain.GenerationPartial
	}
	if runErr != nil {
		gen.LastError = runErr.Error()
	}
	// The final state is written even when ctx was cancelled mid-run, unless
	// the plan itself is gone.
	if errors.Is(runErr, ErrPlanNotFound) {
		// The plan was deleted under the run; drop whatever it wrote since.
		if n, err := o.days.DeleteByPlan(context.WithoutCancel(ctx), plan.ID); err != nil {
			log.Error("failed to remove days of deleted plan", "error", err)
		} else if n > 0 {
			log.Info("removed days of deleted plan", "days", n)
		}
	} else if err := o.plans.UpdateGeneration(context.WithoutCancel(ctx), plan.ID, gen); err != nil {
		log.Error("failed to record generation result", "error", err)
	}

	result := &RunResult{
		PlanID:        plan.ID,
		Status:        gen.Status,
		Degraded:      gen.Degraded,
		GeneratedDays: gen.GeneratedDays,
		FallbackDays:  gen.FallbackDays,
	}
	metrics.RunsFinished.WithLabelValues(string(gen.Status)).Inc()
	if runErr != nil {
		log.Warn("generation run stopped early", "run", gen.RunID, "generatedDays", gen.GeneratedDays, "error", runErr)
		return result, runErr
	}
	log.Info("generation run finished", "run", gen.RunID, "fallbackDays", gen.FallbackDays, "took", finished.Sub(started))
	return result, nil
}

// ensureOpen re-reads the plan at a day boundary. A plan that was deleted,
// cancelled or completed since the run began stops the run.
func (o *Orchestrator) ensureOpen(ctx context.Context, planID primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	plan, err := o.plans.GetByID(ctx, planID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrPlanNotFound
	case err != nil:
		return &PersistenceError{Op: "load plan", PlanID: planID, Err: err}
	case !plan.IsOpen():
		return fmt.Errorf("%w: plan is %s", ErrPlanClosed, plan.Status)
	}
	return nil
}

// awaitDayCreation gates one day on the day_creation limiter. A short
// rejection is slept off and checked again within the retry policy.
func (o *Orchestrator) awaitDayCreation(ctx context.Context, userID string, log *logger.Logger) error {
	for attempt := 1; ; attempt++ {
		d := o.limiter.Check(ctx, userID, domain.ActionDayCreation)
		if d.Allowed {
			return nil
		}
		if !o.retry.ShouldRetry(attempt, d.RetryAfter) {
			return rateLimited(domain.ActionDayCreation, d)
		}
		log.Info("day creation rate limited, waiting", "retryAfter", d.RetryAfter, "attempt", attempt)
		if err := o.clock.Sleep(ctx, d.RetryAfter); err != nil {
			return err
		}
	}
}

// buildDay produces the content of one day. Generation failures fall back to
// the default library; the only error returned is a cancelled context.
func (o *Orchestrator) buildDay(ctx context.Context, strat ContentStrategy, plan *domain.Plan, dayNumber int) (*domain.Day, bool, error) {
	t := strat.ClassifyDay(plan, dayNumber)
	d := &domain.Day{
		PlanID:    plan.ID,
		OwnerID:   plan.OwnerID,
		DayNumber: dayNumber,
		Key:       domain.DayKey(dayNumber),
		Type:      t,
		Date:      plan.DayDate(dayNumber),
		Completion: domain.DayCompletion{
			Status: domain.CompletionNotStarted,
		},
	}

	usedFallback := false
	if !strat.Generative(t) {
		d.Content = strat.Synthesize(plan, dayNumber, t)
		d.GenerationSource = domain.SourceSynthesized
	} else {
		mc, err := o.memory.BuildContext(ctx, plan.ID, dayNumber, o.lookBack)
		if err != nil {
			o.log.Warn("memory context unavailable, generating without history", "plan", plan.ID.Hex(), "day", dayNumber, "error", err)
			mc = &domain.MemoryContext{UpcomingDay: dayNumber}
		}
		d.MemorySnapshot = mc

		began := time.Now()
		out, err := strat.Generate(ctx, plan, dayNumber, t, mc)
		metrics.GenerationDuration.WithLabelValues(metrics.Result(err)).Observe(time.Since(began).Seconds())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			logFn := o.log.Warn
			if !generator.IsGenerationError(err) {
				logFn = o.log.Error
			}
			logFn("day generation failed, using fallback", "plan", plan.ID.Hex(), "day", dayNumber, "type", t, "error", err)
			d.Content = strat.Fallback(plan, dayNumber, t)
			d.GenerationSource = domain.SourceFallback
			d.GenerationError = err.Error()
			usedFallback = true
		} else {
			d.Content = out.Content
			d.NextDaySuggestions = out.Suggestions
			d.GenerationSource = domain.SourceGenerated
		}
	}

	d.Completion.TotalItems = d.Content.ItemCount()
	d.GeneratedAt = o.clock.Now()
	return d, usedFallback, nil
}

// RebuildDay regenerates a not-yet-started day with fresh memory and
// replaces its content in place.
func (o *Orchestrator) RebuildDay(ctx context.Context, plan *domain.Plan, dayNumber int) (*domain.Day, error) {
	strat, err := o.strategyFor(plan.Kind)
	if err != nil {
		return nil, err
	}
	d, _, err := o.buildDay(ctx, strat, plan, dayNumber)
	if err != nil {
		return nil, err
	}
	if err := o.days.ReplaceContent(ctx, plan.ID, dayNumber, d); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDayNotFound
		}
		return nil, &PersistenceError{Op: "replace day", PlanID: plan.ID, DayNumber: dayNumber, Err: err}
	}
	return d, nil
}

// Generative reports whether days of type t of the given kind go through
// the content service.
func (o *Orchestrator) Generative(kind domain.PlanKind, t domain.DayType) bool {
	s, ok := o.strategies[kind]
	return ok && s.Generative(t)
}
