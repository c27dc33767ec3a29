// Package memory provides in-process implementations of the repository
// interfaces. They back the "memory" database driver and the test suites.
package memory

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanRepository implements repository.PlanRepository in memory.
type PlanRepository struct {
	mu    sync.RWMutex
	plans map[primitive.ObjectID]domain.Plan
}

// NewPlanRepository creates an empty in-memory plan store.
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{plans: make(map[primitive.ObjectID]domain.Plan)}
}

var _ repository.PlanRepository = (*PlanRepository)(nil)

func (r *PlanRepository) Create(_ context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.OwnerID == "" || plan.Kind == "" || plan.TotalDays <= 0 {
		return primitive.NilObjectID, errors.New("plan requires ownerId, kind, and totalDays")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	plan.ID = primitive.NewObjectID()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	plan.UpdatedAt = plan.CreatedAt
	r.plans[plan.ID] = *plan
	return plan.ID, nil
}

func (r *PlanRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *PlanRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Plan{}
	for _, p := range r.plans {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *PlanRepository) CountByOwnerAndStatus(_ context.Context, ownerID string, statuses ...domain.PlanStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.plans {
		if p.OwnerID != ownerID {
			continue
		}
		if len(statuses) == 0 || containsStatus(statuses, p.Status) {
			n++
		}
	}
	return n, nil
}

func containsStatus(statuses []domain.PlanStatus, s domain.PlanStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (r *PlanRepository) CountCreatedSince(_ context.Context, ownerID string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.plans {
		if p.OwnerID == ownerID && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *PlanRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	return r.mutate(id, func(p *domain.Plan) { p.Status = status })
}

func (r *PlanRepository) UpdateGeneration(_ context.Context, id primitive.ObjectID, gen domain.PlanGeneration) error {
	return r.mutate(id, func(p *domain.Plan) { p.Generation = gen })
}

func (r *PlanRepository) UpdateMemorySummary(_ context.Context, id primitive.ObjectID, summary domain.MemorySummary) error {
	return r.mutate(id, func(p *domain.Plan) { p.MemorySummary = &summary })
}

func (r *PlanRepository) ApplyProgress(_ context.Context, id primitive.ObjectID, delta domain.ProgressDelta) (*domain.Plan, error) {
	var updated domain.Plan
	err := r.mutate(id, func(p *domain.Plan) {
		p.Progress.CompletedDays += delta.CompletedDays
		p.Progress.SkippedDays += delta.SkippedDays
		p.Progress.Adaptations += delta.Adaptations
		if delta.Rating > 0 {
			total := p.Progress.AverageRating*float64(p.Progress.RatedDays) + float64(delta.Rating)
			p.Progress.RatedDays++
			p.Progress.AverageRating = total / float64(p.Progress.RatedDays)
		}
		if delta.CompletedAt != nil {
			t := delta.CompletedAt.UTC()
			p.Progress.LastCompletedAt = &t
		}
		if delta.AdvanceTo > p.CurrentDay {
			p.CurrentDay = min(delta.AdvanceTo, p.TotalDays)
		}
		updated = *p
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *PlanRepository) Delete(_ context.Context, id primitive.ObjectID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

func (r *PlanRepository) mutate(id primitive.ObjectID, fn func(p *domain.Plan)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&p)
	p.UpdatedAt = time.Now().UTC()
	r.plans[id] = p
	return nil
}

type dayKey struct {
	planID    primitive.ObjectID
	dayNumber int
}

// DayRepository implements repository.DayRepository in memory.
type DayRepository struct {
	mu   sync.RWMutex
	days map[dayKey]domain.Day
}

// NewDayRepository creates an empty in-memory day store.
func NewDayRepository() *DayRepository {
	return &DayRepository{days: make(map[dayKey]domain.Day)}
}

var _ repository.DayRepository = (*DayRepository)(nil)

func (r *DayRepository) Create(_ context.Context, day *domain.Day) (primitive.ObjectID, error) {
	if day.PlanID == primitive.NilObjectID || day.DayNumber <= 0 {
		return primitive.NilObjectID, errors.New("day requires planId and a positive dayNumber")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := dayKey{day.PlanID, day.DayNumber}
	if _, exists := r.days[k]; exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	day.ID = primitive.NewObjectID()
	day.Key = domain.DayKey(day.DayNumber)
	now := time.Now().UTC()
	day.CreatedAt = now
	day.UpdatedAt = now
	r.days[k] = *day
	return day.ID, nil
}

func (r *DayRepository) GetByNumber(_ context.Context, planID primitive.ObjectID, dayNumber int) (*domain.Day, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.days[dayKey{planID, dayNumber}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *DayRepository) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.Day, error) {
	out := r.filter(func(d domain.Day) bool { return d.PlanID == planID })
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}

func (r *DayRepository) ListRange(_ context.Context, planID primitive.ObjectID, from, to int) ([]domain.Day, error) {
	out := r.filter(func(d domain.Day) bool {
		return d.PlanID == planID && d.DayNumber >= from && d.DayNumber <= to
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber > out[j].DayNumber })
	return out, nil
}

func (r *DayRepository) ListRecentCompleted(_ context.Context, planID primitive.ObjectID, n int) ([]domain.Day, error) {
	out := r.filter(func(d domain.Day) bool { return d.PlanID == planID && d.Completion.IsDone() })
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber > out[j].DayNumber })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (r *DayRepository) UpdateCompletion(_ context.Context, planID primitive.ObjectID, dayNumber int, completion domain.DayCompletion, performance domain.DayPerformance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := dayKey{planID, dayNumber}
	d, ok := r.days[k]
	if !ok {
		return repository.ErrNotFound
	}
	d.Completion = completion
	d.Performance = performance
	d.UpdatedAt = time.Now().UTC()
	r.days[k] = d
	return nil
}

func (r *DayRepository) ReplaceContent(_ context.Context, planID primitive.ObjectID, dayNumber int, day *domain.Day) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := dayKey{planID, dayNumber}
	d, ok := r.days[k]
	if !ok {
		return repository.ErrNotFound
	}
	d.Type = day.Type
	d.Content = day.Content
	d.GenerationSource = day.GenerationSource
	d.GenerationError = day.GenerationError
	d.MemorySnapshot = day.MemorySnapshot
	d.NextDaySuggestions = day.NextDaySuggestions
	d.GeneratedAt = day.GeneratedAt
	d.Completion.TotalItems = day.Completion.TotalItems
	d.UpdatedAt = time.Now().UTC()
	r.days[k] = d
	return nil
}

func (r *DayRepository) DeleteByPlan(_ context.Context, planID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k := range r.days {
		if k.planID == planID {
			delete(r.days, k)
			n++
		}
	}
	return n, nil
}

func (r *DayRepository) filter(keep func(d domain.Day) bool) []domain.Day {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Day{}
	for _, d := range r.days {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// ActivityStore implements repository.ActivityStore in memory.
type ActivityStore struct {
	mu      sync.RWMutex
	records []domain.ActivityRecord

	// FailReads makes every read return an error; used to exercise fail-open paths.
	FailReads bool
	// FailWrites makes Append return an error.
	FailWrites bool
}

// NewActivityStore creates an empty in-memory activity store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

var _ repository.ActivityStore = (*ActivityStore)(nil)

var errInjected = errors.New("activity store unavailable")

func (s *ActivityStore) Append(_ context.Context, rec domain.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errInjected
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *ActivityStore) CountSince(_ context.Context, userID string, kind domain.ActionKind, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return 0, errInjected
	}
	n := 0
	for _, r := range s.records {
		if r.UserID == userID && (kind == "" || r.Kind == kind) && !r.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *ActivityStore) ListSince(_ context.Context, userID string, since time.Time) ([]domain.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailReads {
		return nil, errInjected
	}
	out := []domain.ActivityRecord{}
	for _, r := range s.records {
		if r.UserID == userID && !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *ActivityStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	var n int64
	for _, r := range s.records {
		if r.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return n, nil
}

// Len returns the number of stored records.
func (s *ActivityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ExportRepository implements repository.ExportRepository in memory.
type ExportRepository struct {
	mu      sync.RWMutex
	exports []domain.PlanExport
}

// NewExportRepository creates an empty in-memory export store.
func NewExportRepository() *ExportRepository {
	return &ExportRepository{}
}

var _ repository.ExportRepository = (*ExportRepository)(nil)

func (r *ExportRepository) Create(_ context.Context, export *domain.PlanExport) (primitive.ObjectID, error) {
	if export.PlanID == primitive.NilObjectID || export.OwnerID == "" || export.S3ObjectKey == "" {
		return primitive.NilObjectID, errors.New("export requires planId, ownerId, and s3ObjectKey")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	export.ID = primitive.NewObjectID()
	export.CreatedAt = time.Now().UTC()
	r.exports = append(r.exports, *export)
	return export.ID, nil
}

func (r *ExportRepository) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.PlanExport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.PlanExport{}
	for i := len(r.exports) - 1; i >= 0; i-- {
		if r.exports[i].PlanID == planID {
			out = append(out, r.exports[i])
		}
	}
	return out, nil
}

func (r *ExportRepository) DeleteByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.PlanExport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := []domain.PlanExport{}
	kept := r.exports[:0]
	for _, e := range r.exports {
		if e.PlanID == planID {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	r.exports = kept
	return removed, nil
}
