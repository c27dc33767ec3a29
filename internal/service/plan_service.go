package service

import (
	"alcyxob/wellness-app/internal/activity"
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/memoryctx"
	"alcyxob/wellness-app/internal/ratelimit"
	"alcyxob/wellness-app/internal/repository"
	"alcyxob/wellness-app/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletionInput is what the user reports when finishing a day.
type CompletionInput struct {
	Status          domain.CompletionStatus // completed (default) or partially_completed
	Rating          int                     // 1..5, 0 when not rated
	Feedback        string
	CompletedItems  int
	DurationMinutes int
	Performance     domain.DayPerformance
}

// CompletionResult is returned by CompleteDay.
type CompletionResult struct {
	Day         *domain.Day  `json:"day"`
	Plan        *domain.Plan `json:"plan"`
	AdaptedNext bool         `json:"adaptedNextDay"`
}

// PlanService is the plan lifecycle as seen by the API.
type PlanService interface {
	CreatePlan(ctx context.Context, req PlanRequest) (*domain.Plan, error)
	ResumeGeneration(ctx context.Context, userID string, planID primitive.ObjectID) (*domain.Plan, error)
	GetPlan(ctx context.Context, userID string, planID primitive.ObjectID) (*domain.Plan, error)
	ListPlans(ctx context.Context, userID string) ([]domain.Plan, error)
	ListDays(ctx context.Context, userID string, planID primitive.ObjectID) ([]domain.Day, error)
	GetDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int) (*domain.Day, error)
	StartDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int) (*domain.Day, error)
	CompleteDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int, in CompletionInput) (*CompletionResult, error)
	SkipDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int, reason string) (*domain.Day, error)
	UpdateStatus(ctx context.Context, userID string, planID primitive.ObjectID, status domain.PlanStatus) (*domain.Plan, error)
	DeletePlan(ctx context.Context, userID string, planID primitive.ObjectID) error
	ExportPlan(ctx context.Context, userID string, planID primitive.ObjectID) (*domain.PlanExport, error)
}

// PlanServiceDeps are the collaborators of the plan service. Storage may be
// nil, in which case exports are unavailable.
type PlanServiceDeps struct {
	Plans        repository.PlanRepository
	Days         repository.DayRepository
	Exports      repository.ExportRepository
	Orchestrator *Orchestrator
	Dispatcher   *Dispatcher
	Limiter      *ratelimit.Limiter
	Ledger       *activity.Ledger
	Memory       *memoryctx.Aggregator
	Storage      storage.FileStorage
	Clock        clock.Clock
	Log          *logger.Logger
}

type planService struct {
	plans        repository.PlanRepository
	days         repository.DayRepository
	exports      repository.ExportRepository
	orchestrator *Orchestrator
	dispatcher   *Dispatcher
	limiter      *ratelimit.Limiter
	ledger       *activity.Ledger
	memory       *memoryctx.Aggregator
	storage      storage.FileStorage
	clock        clock.Clock
	log          *logger.Logger
}

// NewPlanService creates a new instance of planService.
func NewPlanService(deps PlanServiceDeps) PlanService {
	s := &planService{
		plans:        deps.Plans,
		days:         deps.Days,
		exports:      deps.Exports,
		orchestrator: deps.Orchestrator,
		dispatcher:   deps.Dispatcher,
		limiter:      deps.Limiter,
		ledger:       deps.Ledger,
		memory:       deps.Memory,
		storage:      deps.Storage,
		clock:        deps.Clock,
		log:          deps.Log,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// === Generation ===

// CreatePlan admits and stores the plan, then hands day generation to the
// dispatcher. The returned plan has generation status pending.
func (s *planService) CreatePlan(ctx context.Context, req PlanRequest) (*domain.Plan, error) {
	plan, err := s.orchestrator.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	s.dispatch(plan)
	return plan, nil
}

func (s *planService) dispatch(plan *domain.Plan) {
	p := *plan
	s.dispatcher.Submit("generate "+p.ID.Hex(), func(ctx context.Context) error {
		_, err := s.orchestrator.Generate(ctx, &p)
		return err
	})
}

// ResumeGeneration continues a partial run in the background.
func (s *planService) ResumeGeneration(ctx context.Context, userID string, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if err := Resumable(plan); err != nil {
		return nil, err
	}
	s.dispatcher.Submit("resume "+planID.Hex(), func(ctx context.Context) error {
		_, err := s.orchestrator.Resume(ctx, planID)
		return err
	})
	return plan, nil
}

// === Reads ===

func (s *planService) GetPlan(ctx context.Context, userID string, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.OwnerID != userID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

func (s *planService) ListPlans(ctx context.Context, userID string) ([]domain.Plan, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return s.plans.ListByOwner(ctx, userID)
}

func (s *planService) ListDays(ctx context.Context, userID string, planID primitive.ObjectID) ([]domain.Day, error) {
	if _, err := s.GetPlan(ctx, userID, planID); err != nil {
		return nil, err
	}
	return s.days.ListByPlan(ctx, planID)
}

func (s *planService) GetDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int) (*domain.Day, error) {
	if _, err := s.GetPlan(ctx, userID, planID); err != nil {
		return nil, err
	}
	return s.day(ctx, planID, dayNumber)
}

func (s *planService) day(ctx context.Context, planID primitive.ObjectID, dayNumber int) (*domain.Day, error) {
	d, err := s.days.GetByNumber(ctx, planID, dayNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}
	return d, nil
}

// === Day lifecycle ===

// activeDay loads an owned day of an active plan.
func (s *planService) activeDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int) (*domain.Plan, *domain.Day, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, nil, err
	}
	if plan.Status != domain.PlanStatusActive {
		return nil, nil, fmt.Errorf("%w: plan is %s", ErrInvalidTransition, plan.Status)
	}
	d, err := s.day(ctx, planID, dayNumber)
	if err != nil {
		return nil, nil, err
	}
	return plan, d, nil
}

func closed(status domain.CompletionStatus) bool {
	return status == domain.CompletionCompleted || status == domain.CompletionPartial || status == domain.CompletionSkipped
}

// StartDay marks a day in progress. Starting an in-progress day is a no-op.
func (s *planService) StartDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int) (*domain.Day, error) {
	_, d, err := s.activeDay(ctx, userID, planID, dayNumber)
	if err != nil {
		return nil, err
	}
	switch {
	case d.Completion.Status == domain.CompletionInProgress:
		return d, nil
	case closed(d.Completion.Status):
		return nil, fmt.Errorf("%w: day is %s", ErrInvalidTransition, d.Completion.Status)
	}

	now := s.clock.Now()
	d.Completion.Status = domain.CompletionInProgress
	d.Completion.StartedAt = &now
	if err := s.days.UpdateCompletion(ctx, planID, dayNumber, d.Completion, d.Performance); err != nil {
		return nil, &PersistenceError{Op: "start day", PlanID: planID, DayNumber: dayNumber, Err: err}
	}
	return d, nil
}

func validateCompletion(in *CompletionInput) error {
	switch in.Status {
	case "":
		in.Status = domain.CompletionCompleted
	case domain.CompletionCompleted, domain.CompletionPartial:
	default:
		return fmt.Errorf("%w: status must be completed or partially_completed", ErrInvalidCompletion)
	}
	if in.Rating < 0 || in.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidCompletion)
	}
	if in.CompletedItems < 0 || in.DurationMinutes < 0 {
		return fmt.Errorf("%w: counts must not be negative", ErrInvalidCompletion)
	}
	p := in.Performance
	for name, v := range map[string]int{
		"perceivedExertion": p.PerceivedExertion,
		"energy":            p.Energy,
		"recovery":          p.Recovery,
		"satisfaction":      p.Satisfaction,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("%w: %s must be between 1 and 10", ErrInvalidCompletion, name)
		}
	}
	for _, is := range p.ItemScores {
		if is.Satisfaction < 0 || is.Satisfaction > 10 {
			return fmt.Errorf("%w: score for %q must be between 1 and 10", ErrInvalidCompletion, is.Name)
		}
	}
	return nil
}

// CompleteDay records the outcome of a day, folds it into the plan progress,
// refreshes the cached memory summary and, with auto-adapt on, rebuilds the
// next day so it reflects this result.
func (s *planService) CompleteDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int, in CompletionInput) (*CompletionResult, error) {
	if err := validateCompletion(&in); err != nil {
		return nil, err
	}
	plan, d, err := s.activeDay(ctx, userID, planID, dayNumber)
	if err != nil {
		return nil, err
	}
	if closed(d.Completion.Status) {
		return nil, fmt.Errorf("%w: day is already %s", ErrInvalidTransition, d.Completion.Status)
	}
	if dec := s.limiter.Check(ctx, userID, domain.ActionDayCompletion); !dec.Allowed {
		return nil, rateLimited(domain.ActionDayCompletion, dec)
	}

	now := s.clock.Now()
	total := d.Content.ItemCount()
	items := in.CompletedItems
	if items == 0 && in.Status == domain.CompletionCompleted {
		items = total
	}
	d.Completion = domain.DayCompletion{
		Status:          in.Status,
		StartedAt:       d.Completion.StartedAt,
		CompletedAt:     &now,
		Rating:          in.Rating,
		Feedback:        in.Feedback,
		CompletedItems:  min(items, total),
		TotalItems:      total,
		DurationMinutes: in.DurationMinutes,
	}
	d.Performance = in.Performance
	if err := s.days.UpdateCompletion(ctx, planID, dayNumber, d.Completion, d.Performance); err != nil {
		return nil, &PersistenceError{Op: "complete day", PlanID: planID, DayNumber: dayNumber, Err: err}
	}

	plan, err = s.plans.ApplyProgress(ctx, planID, domain.ProgressDelta{
		CompletedDays: 1,
		Rating:        in.Rating,
		CompletedAt:   &now,
		AdvanceTo:     dayNumber + 1,
	})
	if err != nil {
		return nil, &PersistenceError{Op: "apply progress", PlanID: planID, DayNumber: dayNumber, Err: err}
	}
	s.ledger.Record(ctx, userID, domain.ActionDayCompletion, map[string]string{
		"planId": planID.Hex(),
		"day":    strconv.Itoa(dayNumber),
	})

	if dayNumber == plan.TotalDays {
		if err := s.finish(ctx, plan); err != nil {
			return nil, err
		}
	}
	s.refreshSummary(ctx, plan)

	result := &CompletionResult{Day: d, Plan: plan}
	if plan.Settings.AutoAdapt && dayNumber < plan.TotalDays {
		result.AdaptedNext = s.adaptNext(ctx, plan, dayNumber+1)
		if result.AdaptedNext {
			if p, err := s.plans.ApplyProgress(ctx, planID, domain.ProgressDelta{Adaptations: 1}); err == nil {
				result.Plan = p
			}
		}
	}
	return result, nil
}

func (s *planService) finish(ctx context.Context, plan *domain.Plan) error {
	if err := s.plans.UpdateStatus(ctx, plan.ID, domain.PlanStatusCompleted); err != nil {
		return &PersistenceError{Op: "complete plan", PlanID: plan.ID, Err: err}
	}
	plan.Status = domain.PlanStatusCompleted
	s.log.Info("plan completed", "plan", plan.ID.Hex(), "user", plan.OwnerID)
	return nil
}

func (s *planService) refreshSummary(ctx context.Context, plan *domain.Plan) {
	summary, err := s.memory.Summarize(ctx, plan)
	if err != nil {
		s.log.Warn("failed to summarize plan history", "plan", plan.ID.Hex(), "error", err)
		return
	}
	if summary == nil {
		return
	}
	if err := s.plans.UpdateMemorySummary(ctx, plan.ID, *summary); err != nil {
		s.log.Warn("failed to store memory summary", "plan", plan.ID.Hex(), "error", err)
		return
	}
	plan.MemorySummary = summary
}

// adaptNext rebuilds a generative, untouched next day. Failures only cost the
// adaptation; the completion itself already succeeded.
func (s *planService) adaptNext(ctx context.Context, plan *domain.Plan, dayNumber int) bool {
	next, err := s.days.GetByNumber(ctx, plan.ID, dayNumber)
	if err != nil {
		// not generated yet; the run will pick up the fresh memory itself
		return false
	}
	if next.Completion.Status != domain.CompletionNotStarted || !s.orchestrator.Generative(plan.Kind, next.Type) {
		return false
	}
	if _, err := s.orchestrator.RebuildDay(ctx, plan, dayNumber); err != nil {
		s.log.Warn("failed to adapt next day", "plan", plan.ID.Hex(), "day", dayNumber, "error", err)
		return false
	}
	s.log.Info("next day adapted", "plan", plan.ID.Hex(), "day", dayNumber)
	return true
}

// SkipDay closes a day without doing it.
func (s *planService) SkipDay(ctx context.Context, userID string, planID primitive.ObjectID, dayNumber int, reason string) (*domain.Day, error) {
	plan, d, err := s.activeDay(ctx, userID, planID, dayNumber)
	if err != nil {
		return nil, err
	}
	if closed(d.Completion.Status) {
		return nil, fmt.Errorf("%w: day is already %s", ErrInvalidTransition, d.Completion.Status)
	}

	d.Completion.Status = domain.CompletionSkipped
	d.Completion.Feedback = reason
	if err := s.days.UpdateCompletion(ctx, planID, dayNumber, d.Completion, d.Performance); err != nil {
		return nil, &PersistenceError{Op: "skip day", PlanID: planID, DayNumber: dayNumber, Err: err}
	}
	plan, err = s.plans.ApplyProgress(ctx, planID, domain.ProgressDelta{SkippedDays: 1, AdvanceTo: dayNumber + 1})
	if err != nil {
		return nil, &PersistenceError{Op: "apply progress", PlanID: planID, DayNumber: dayNumber, Err: err}
	}
	if dayNumber == plan.TotalDays {
		if err := s.finish(ctx, plan); err != nil {
			return nil, err
		}
	}
	s.refreshSummary(ctx, plan)
	return d, nil
}

// === Plan lifecycle ===

var transitions = map[domain.PlanStatus][]domain.PlanStatus{
	domain.PlanStatusActive: {domain.PlanStatusPaused, domain.PlanStatusCancelled},
	domain.PlanStatusPaused: {domain.PlanStatusActive, domain.PlanStatusCancelled},
}

// UpdateStatus pauses, resumes or cancels a plan. Completed is only reached
// through the final day.
func (s *planService) UpdateStatus(ctx context.Context, userID string, planID primitive.ObjectID, status domain.PlanStatus) (*domain.Plan, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status == status {
		return plan, nil
	}
	allowed := false
	for _, next := range transitions[plan.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, plan.Status, status)
	}
	if err := s.plans.UpdateStatus(ctx, planID, status); err != nil {
		return nil, &PersistenceError{Op: "update status", PlanID: planID, Err: err}
	}
	plan.Status = status
	return plan, nil
}

// DeletePlan removes the plan, its days and its exported snapshots.
func (s *planService) DeletePlan(ctx context.Context, userID string, planID primitive.ObjectID) error {
	if _, err := s.GetPlan(ctx, userID, planID); err != nil {
		return err
	}

	if s.exports != nil {
		removed, err := s.exports.DeleteByPlan(ctx, planID)
		if err != nil {
			return &PersistenceError{Op: "delete exports", PlanID: planID, Err: err}
		}
		for _, e := range removed {
			if s.storage == nil {
				break
			}
			if err := s.storage.DeleteObject(ctx, e.S3ObjectKey); err != nil {
				s.log.Warn("failed to delete export object", "plan", planID.Hex(), "key", e.S3ObjectKey, "error", err)
			}
		}
	}

	n, err := s.days.DeleteByPlan(ctx, planID)
	if err != nil {
		return &PersistenceError{Op: "delete days", PlanID: planID, Err: err}
	}
	if err := s.plans.Delete(ctx, planID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return &PersistenceError{Op: "delete plan", PlanID: planID, Err: err}
	}
	s.log.Info("plan deleted", "plan", planID.Hex(), "user", userID, "days", n)
	return nil
}

// planSnapshot is the exported document.
type planSnapshot struct {
	ExportedAt time.Time    `json:"exportedAt"`
	Plan       domain.Plan  `json:"plan"`
	Days       []domain.Day `json:"days"`
}

// ExportPlan writes a JSON snapshot of the plan and its days to object
// storage and returns its metadata with a presigned download URL.
func (s *planService) ExportPlan(ctx context.Context, userID string, planID primitive.ObjectID) (*domain.PlanExport, error) {
	if s.storage == nil || s.exports == nil {
		return nil, ErrExportUnavailable
	}
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if dec := s.limiter.Check(ctx, userID, domain.ActionPlanExport); !dec.Allowed {
		return nil, rateLimited(domain.ActionPlanExport, dec)
	}
	days, err := s.days.ListByPlan(ctx, planID)
	if err != nil {
		return nil, &PersistenceError{Op: "list days", PlanID: planID, Err: err}
	}

	now := s.clock.Now()
	body, err := json.Marshal(planSnapshot{ExportedAt: now, Plan: *plan, Days: days})
	if err != nil {
		return nil, fmt.Errorf("encode plan snapshot: %w", err)
	}
	key := fmt.Sprintf("exports/%s/%s/%s.json", userID, planID.Hex(), uuid.NewString())
	if err := s.storage.PutObject(ctx, key, "application/json", body); err != nil {
		return nil, fmt.Errorf("upload plan snapshot: %w", err)
	}

	export := &domain.PlanExport{
		PlanID:      planID,
		OwnerID:     userID,
		S3ObjectKey: key,
		ContentType: "application/json",
		Size:        int64(len(body)),
		DayCount:    len(days),
		CreatedAt:   now,
	}
	if _, err := s.exports.Create(ctx, export); err != nil {
		return nil, &PersistenceError{Op: "create export", PlanID: planID, Err: err}
	}
	s.ledger.Record(ctx, userID, domain.ActionPlanExport, map[string]string{"planId": planID.Hex()})

	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign export: %w", err)
	}
	export.DownloadURL = url
	return export, nil
}
