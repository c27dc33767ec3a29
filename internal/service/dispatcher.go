package service

import (
	"alcyxob/wellness-app/internal/logger"
	"alcyxob/wellness-app/internal/metrics"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Dispatcher runs generation jobs in the background, at most maxRuns at a
// time. Jobs waiting for a slot hold no resources besides a goroutine.
type Dispatcher struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	base    context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *logger.Logger
}

func NewDispatcher(maxRuns int64, runTimeout time.Duration, log *logger.Logger) *Dispatcher {
	if maxRuns <= 0 {
		maxRuns = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sem:     semaphore.NewWeighted(maxRuns),
		timeout: runTimeout,
		base:    base,
		cancel:  cancel,
		log:     log,
	}
}

// Submit schedules job. The job's context is detached from the caller's
// request and is cancelled by Shutdown or after the run timeout.
func (d *Dispatcher) Submit(name string, job func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.sem.Acquire(d.base, 1); err != nil {
			d.log.Warn("job dropped before start", "job", name, "error", err)
			return
		}
		defer d.sem.Release(1)
		// Acquire may win the race against a shutdown that already happened.
		if err := d.base.Err(); err != nil {
			d.log.Warn("job dropped before start", "job", name, "error", err)
			return
		}
		metrics.RunsInFlight.Inc()
		defer metrics.RunsInFlight.Dec()

		ctx := d.base
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		if err := job(ctx); err != nil {
			d.log.Warn("background job finished with error", "job", name, "error", err)
		}
	}()
}

// Wait blocks until every submitted job has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown cancels running jobs and waits for them, or for ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.cancel()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
