// Package ratelimit evaluates user actions against windowed thresholds and
// flags bursty activity. Both evaluators read the activity ledger and fail
// open when it is unavailable.
package ratelimit

import (
	"alcyxob/wellness-app/internal/activity"
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/metrics"
	"context"
	"fmt"
	"time"
)

// Window identifies one of the nested counting windows.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Duration is the span of the window, which is also the retry-after hint
// returned when it is violated.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	}
	return 0
}

// Limits holds the per-window thresholds of one action kind. A zero threshold
// disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

func (l Limits) threshold(w Window) int {
	switch w {
	case WindowMinute:
		return l.PerMinute
	case WindowHour:
		return l.PerHour
	case WindowDay:
		return l.PerDay
	}
	return 0
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed      bool          `json:"allowed"`
	RetryAfter   time.Duration `json:"retryAfter,omitempty"`
	Window       Window        `json:"window,omitempty"`
	CurrentCount int           `json:"currentCount,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	// Degraded is set when the ledger could not be read and the check failed open.
	Degraded bool `json:"degraded,omitempty"`
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	return int((d.RetryAfter + time.Second - 1) / time.Second)
}

func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	return fmt.Sprintf("limited: %d/%d per %s, retry after %s", d.CurrentCount, d.Limit, d.Window, d.RetryAfter)
}

var windowOrder = []Window{WindowMinute, WindowHour, WindowDay}

// Limiter checks actions against the thresholds table.
type Limiter struct {
	ledger *activity.Ledger
	limits map[domain.ActionKind]Limits
	log    *logger.Logger
}

func NewLimiter(ledger *activity.Ledger, limits map[domain.ActionKind]Limits, log *logger.Logger) *Limiter {
	if log == nil {
		log = logger.Nop()
	}
	return &Limiter{ledger: ledger, limits: limits, log: log}
}

// LimitsFromConfig converts the configured action table. Kinds missing from
// cfg keep their built-in defaults.
func LimitsFromConfig(cfg map[string]config.WindowLimits) map[domain.ActionKind]Limits {
	out := make(map[domain.ActionKind]Limits)
	for name, w := range config.Defaults().Limits.Actions {
		out[domain.ActionKind(name)] = Limits{PerMinute: w.PerMinute, PerHour: w.PerHour, PerDay: w.PerDay}
	}
	for name, w := range cfg {
		out[domain.ActionKind(name)] = Limits{PerMinute: w.PerMinute, PerHour: w.PerHour, PerDay: w.PerDay}
	}
	return out
}

// Check evaluates the minute, hour and day windows in that order and returns
// the first one whose count has reached its threshold. Unknown kinds are
// always allowed.
func (l *Limiter) Check(ctx context.Context, userID string, kind domain.ActionKind) Decision {
	limits, ok := l.limits[kind]
	if !ok {
		return Decision{Allowed: true}
	}
	now := l.ledger.Now()
	for _, w := range windowOrder {
		limit := limits.threshold(w)
		if limit <= 0 {
			continue
		}
		n, err := l.ledger.CountSince(ctx, userID, kind, now.Add(-w.Duration()))
		if err != nil {
			l.log.Warn("rate limit check degraded, allowing", "user", userID, "kind", kind, "window", w, "error", err)
			return Decision{Allowed: true, Degraded: true}
		}
		if n >= limit {
			metrics.RateLimitRejections.WithLabelValues(string(kind), string(w)).Inc()
			return Decision{
				Allowed:      false,
				RetryAfter:   w.Duration(),
				Window:       w,
				CurrentCount: n,
				Limit:        limit,
			}
		}
	}
	return Decision{Allowed: true}
}
