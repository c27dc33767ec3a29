package ratelimit

import (
	"alcyxob/wellness-app/internal/activity"
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func newLimiter(t *testing.T) (*Limiter, *activity.Ledger, *clock.Fake, *memory.ActivityStore) {
	t.Helper()
	store := memory.NewActivityStore()
	clk := clock.NewFake(t0)
	ledger := activity.NewLedger(store, clk, nil)
	return NewLimiter(ledger, LimitsFromConfig(nil), nil), ledger, clk, store
}

func TestCheckMinuteWindowRejectsThirdPlanCreation(t *testing.T) {
	ctx := context.Background()
	lim, ledger, clk, _ := newLimiter(t)

	ledger.Record(ctx, "u1", domain.ActionPlanCreation, nil)
	clk.Advance(30 * time.Second)
	ledger.Record(ctx, "u1", domain.ActionPlanCreation, nil)
	clk.Advance(25 * time.Second)

	d := lim.Check(ctx, "u1", domain.ActionPlanCreation)
	assert.False(t, d.Allowed)
	assert.Equal(t, WindowMinute, d.Window)
	assert.Equal(t, 60, d.RetryAfterSeconds())
	assert.Equal(t, 2, d.CurrentCount)
	assert.Equal(t, 2, d.Limit)
}

func TestCheckWindowsInOrder(t *testing.T) {
	tests := []struct {
		name       string
		records    int
		spacing    time.Duration
		wantWindow Window
		wantRetry  time.Duration
	}{
		{name: "under every limit", records: 1, spacing: time.Minute},
		{name: "hour window", records: 5, spacing: 2 * time.Minute, wantWindow: WindowHour, wantRetry: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			lim, ledger, clk, _ := newLimiter(t)
			for i := 0; i < tt.records; i++ {
				ledger.Record(ctx, "u1", domain.ActionPlanCreation, nil)
				clk.Advance(tt.spacing)
			}
			d := lim.Check(ctx, "u1", domain.ActionPlanCreation)
			if tt.wantWindow == "" {
				assert.True(t, d.Allowed)
				return
			}
			assert.False(t, d.Allowed)
			assert.Equal(t, tt.wantWindow, d.Window)
			assert.Equal(t, tt.wantRetry, d.RetryAfter)
		})
	}
}

func TestCheckDayWindow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewActivityStore()
	clk := clock.NewFake(t0)
	ledger := activity.NewLedger(store, clk, nil)
	lim := NewLimiter(ledger, map[domain.ActionKind]Limits{
		domain.ActionPlanExport: {PerMinute: 10, PerHour: 10, PerDay: 3},
	}, nil)

	for i := 0; i < 3; i++ {
		ledger.Record(ctx, "u1", domain.ActionPlanExport, nil)
		clk.Advance(time.Hour)
	}

	d := lim.Check(ctx, "u1", domain.ActionPlanExport)
	assert.False(t, d.Allowed)
	assert.Equal(t, WindowDay, d.Window)
	assert.Equal(t, 86400, d.RetryAfterSeconds())

	clk.Advance(22 * time.Hour)
	assert.True(t, lim.Check(ctx, "u1", domain.ActionPlanExport).Allowed)
}

func TestCheckUnknownKindAllowed(t *testing.T) {
	lim, _, _, _ := newLimiter(t)
	d := lim.Check(context.Background(), "u1", domain.ActionKind("made_up"))
	assert.True(t, d.Allowed)
}

func TestCheckFailsOpenOnLedgerError(t *testing.T) {
	ctx := context.Background()
	lim, ledger, _, store := newLimiter(t)
	ledger.Record(ctx, "u1", domain.ActionPlanCreation, nil)
	ledger.Record(ctx, "u1", domain.ActionPlanCreation, nil)
	store.FailReads = true

	d := lim.Check(ctx, "u1", domain.ActionPlanCreation)
	assert.True(t, d.Allowed)
	assert.True(t, d.Degraded)
}

func TestLimitsFromConfigOverrides(t *testing.T) {
	limits := LimitsFromConfig(map[string]config.WindowLimits{
		"plan_creation": {PerMinute: 1, PerHour: 2, PerDay: 3},
	})
	require.Contains(t, limits, domain.ActionDayCreation)
	assert.Equal(t, Limits{PerMinute: 1, PerHour: 2, PerDay: 3}, limits[domain.ActionPlanCreation])
	assert.Equal(t, Limits{PerMinute: 10, PerHour: 100, PerDay: 500}, limits[domain.ActionDayCreation])
}
