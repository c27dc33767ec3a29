package service

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/ratelimit"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrPlanNotFound       = errors.New("plan not found")
	ErrPlanAccessDenied   = errors.New("access denied to this plan")
	ErrDayNotFound        = errors.New("day not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidPlanRequest = errors.New("invalid plan request")
	ErrInvalidCompletion  = errors.New("invalid completion data")
	ErrUnsupportedKind    = errors.New("unsupported plan kind")
	ErrNotResumable       = errors.New("plan generation cannot be resumed")
	ErrPlanClosed         = errors.New("plan is no longer open")
	ErrExportUnavailable  = errors.New("plan export storage is not configured")
)

// QuotaExceededError is returned when a structural tier limit blocks plan creation.
type QuotaExceededError struct {
	Reason  string
	Code    string
	Current int
	Limit   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded (%s): %s", e.Code, e.Reason)
}

// RateLimitedError is returned when a temporal window blocks an action.
type RateLimitedError struct {
	Action     domain.ActionKind
	Window     ratelimit.Window
	RetryAfter time.Duration
	Current    int
	Limit      int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s %d/%d per %s, retry after %s", e.Action, e.Current, e.Limit, e.Window, e.RetryAfter)
}

func rateLimited(action domain.ActionKind, d ratelimit.Decision) *RateLimitedError {
	return &RateLimitedError{
		Action:     action,
		Window:     d.Window,
		RetryAfter: d.RetryAfter,
		Current:    d.CurrentCount,
		Limit:      d.Limit,
	}
}

// SuspiciousActivityError is returned when the fraud detector flags the account.
type SuspiciousActivityError struct {
	Reason   ratelimit.Reason
	CoolDown time.Duration
}

func (e *SuspiciousActivityError) Error() string {
	return fmt.Sprintf("suspicious activity (%s), try again in %s", e.Reason, e.CoolDown)
}

// PersistenceError wraps a store failure that stopped an operation.
// DayNumber is zero for plan-level operations.
type PersistenceError struct {
	Op        string
	PlanID    primitive.ObjectID
	DayNumber int
	Err       error
}

func (e *PersistenceError) Error() string {
	switch {
	case e.DayNumber > 0:
		return fmt.Sprintf("%s (plan %s, day %d): %v", e.Op, e.PlanID.Hex(), e.DayNumber, e.Err)
	case !e.PlanID.IsZero():
		return fmt.Sprintf("%s (plan %s): %v", e.Op, e.PlanID.Hex(), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
