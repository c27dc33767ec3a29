package activity

import (
	"alcyxob/wellness-app/internal/clock"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func TestRecordAndCount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewActivityStore()
	clk := clock.NewFake(t0)
	l := NewLedger(store, clk, nil)

	l.Record(ctx, "u1", domain.ActionPlanCreation, map[string]string{"kind": "exercise"})
	clk.Advance(10 * time.Second)
	l.Record(ctx, "u1", domain.ActionDayCreation, nil)
	l.Record(ctx, "u2", domain.ActionPlanCreation, nil)

	n, err := l.CountSince(ctx, "u1", domain.ActionPlanCreation, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = l.CountSince(ctx, "u1", "", t0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = l.CountSince(ctx, "u1", "", t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := memory.NewActivityStore()
	store.FailWrites = true
	l := NewLedger(store, clock.NewFake(t0), nil)

	assert.NotPanics(t, func() {
		l.Record(context.Background(), "u1", domain.ActionPlanCreation, nil)
	})
	assert.Equal(t, 0, store.Len())
}

func TestRecentSequenceOrderAndIgnore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewActivityStore()
	clk := clock.NewFake(t0)
	l := NewLedger(store, clk, nil)

	l.Record(ctx, "u1", domain.ActionPlanCreation, nil)
	clk.Advance(2 * time.Hour)
	l.Record(ctx, "u1", domain.ActionDayCompletion, nil)
	clk.Advance(3 * time.Second)
	l.Record(ctx, "u1", domain.ActionDayCreation, nil)
	clk.Advance(3 * time.Second)
	l.Record(ctx, "u1", domain.ActionPlanExport, nil)

	seq, err := l.RecentSequence(ctx, "u1", time.Hour)
	require.NoError(t, err)
	require.Len(t, seq, 3)
	assert.True(t, seq[0].Before(seq[1]))

	seq, err = l.RecentSequence(ctx, "u1", time.Hour, domain.ActionDayCreation)
	require.NoError(t, err)
	assert.Len(t, seq, 2)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	store := memory.NewActivityStore()
	clk := clock.NewFake(t0)
	l := NewLedger(store, clk, nil)

	l.Record(ctx, "u1", domain.ActionPlanCreation, nil)
	clk.Advance(8 * 24 * time.Hour)
	l.Record(ctx, "u1", domain.ActionPlanCreation, nil)

	removed, err := l.Prune(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}
