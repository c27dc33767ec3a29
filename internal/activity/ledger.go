// Package activity implements the append-only activity ledger used for rate
// limiting and fraud heuristics.
package activity

import (
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultRetention is how long records are kept before Prune removes them.
const DefaultRetention = 7 * 24 * time.Hour

// Ledger records user actions. Writes are best effort.
type Ledger struct {
	store repository.ActivityStore
	clock clock.Clock
	log   *logger.Logger
}

func NewLedger(store repository.ActivityStore, clk clock.Clock, log *logger.Logger) *Ledger {
	if clk == nil {
		clk = clock.Real()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{store: store, clock: clk, log: log}
}

// Now exposes the ledger's clock so evaluators share the same time source.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

// Record appends one entry. A store failure is logged and swallowed so the
// calling action is never blocked by bookkeeping.
func (l *Ledger) Record(ctx context.Context, userID string, kind domain.ActionKind, metadata map[string]string) {
	rec := domain.ActivityRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Timestamp: l.clock.Now(),
		Metadata:  metadata,
	}
	if err := l.store.Append(ctx, rec); err != nil {
		l.log.Warn("activity record dropped", "user", userID, "kind", kind, "error", err)
	}
}

// CountSince counts the user's records of kind at or after since.
// An empty kind counts every kind.
func (l *Ledger) CountSince(ctx context.Context, userID string, kind domain.ActionKind, since time.Time) (int, error) {
	return l.store.CountSince(ctx, userID, kind, since)
}

// RecentSequence returns the timestamps of the user's records in the last
// window, oldest first. Kinds in ignore are left out.
func (l *Ledger) RecentSequence(ctx context.Context, userID string, window time.Duration, ignore ...domain.ActionKind) ([]time.Time, error) {
	recs, err := l.store.ListSince(ctx, userID, l.clock.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(recs))
	for _, r := range recs {
		if containsKind(ignore, r.Kind) {
			continue
		}
		out = append(out, r.Timestamp)
	}
	return out, nil
}

func containsKind(kinds []domain.ActionKind, k domain.ActionKind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

// Prune deletes records older than retention.
func (l *Ledger) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return l.store.DeleteBefore(ctx, l.clock.Now().Add(-retention))
}

// RunJanitor prunes on every tick until ctx is cancelled.
func (l *Ledger) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.Prune(ctx, retention)
			if err != nil {
				l.log.Warn("activity prune failed", "error", err)
				continue
			}
			if n > 0 {
				l.log.Debug("activity pruned", "removed", n)
			}
		}
	}
}
