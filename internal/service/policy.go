package service

import (
	"alcyxob/wellness-app/internal/config"
	"time"
)

// RetryPolicy bounds how a run reacts to a day_creation rate-limit rejection.
// MaxAttempts counts every check of the limiter, the first one included.
type RetryPolicy struct {
	MaxAttempts int
	MaxWait     time.Duration
}

// ShouldRetry reports whether the run may sleep for wait and check again
// after the given number of attempts.
func (p RetryPolicy) ShouldRetry(attempts int, wait time.Duration) bool {
	return attempts < p.MaxAttempts && wait <= p.MaxWait
}

// Pacing spaces consecutive day generations so a long run does not hammer
// the content service.
type Pacing struct {
	Base           time.Duration
	PerDay         time.Duration
	Max            time.Duration
	LongPauseEvery int
	LongPause      time.Duration
}

// Delay is the pause after persisting dayNumber: min(base + perDay*day, max),
// plus the long pause on every LongPauseEvery-th day.
func (p Pacing) Delay(dayNumber int) time.Duration {
	d := p.Base + p.PerDay*time.Duration(dayNumber)
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	if p.LongPauseEvery > 0 && dayNumber%p.LongPauseEvery == 0 {
		d += p.LongPause
	}
	return d
}

func policiesFromConfig(cfg config.OrchestratorConfig) (RetryPolicy, Pacing) {
	def := config.Defaults().Orchestrator
	retry := RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, MaxWait: cfg.MaxRateLimitWait}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = def.RetryMaxAttempts
	}
	if retry.MaxWait <= 0 {
		retry.MaxWait = def.MaxRateLimitWait
	}
	pacing := Pacing{
		Base:           cfg.PacingBase,
		PerDay:         cfg.PacingPerDay,
		Max:            cfg.PacingMax,
		LongPauseEvery: cfg.LongPauseEvery,
		LongPause:      cfg.LongPause,
	}
	return retry, pacing
}
