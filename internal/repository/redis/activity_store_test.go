package redis

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T, retention time.Duration) (repository.ActivityStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewActivityStore(rdb, "test", retention), mr
}

func record(n int, kind domain.ActionKind, at time.Time) domain.ActivityRecord {
	return domain.ActivityRecord{
		ID:        fmt.Sprintf("rec-%d", n),
		UserID:    "u1",
		Kind:      kind,
		Timestamp: at,
	}
}

func TestAppendCountAndList(t *testing.T) {
	ctx := context.Background()
	store, mr := newStore(t, 0)

	require.NoError(t, store.Append(ctx, record(1, domain.ActionPlanCreation, t0)))
	require.NoError(t, store.Append(ctx, record(2, domain.ActionDayCreation, t0.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, record(3, domain.ActionPlanCreation, t0.Add(2*time.Minute))))

	assert.True(t, mr.Exists("test:u1:all"))
	assert.True(t, mr.Exists("test:u1:plan_creation"))

	n, err := store.CountSince(ctx, "u1", domain.ActionPlanCreation, t0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// the lower bound is inclusive
	n, err = store.CountSince(ctx, "u1", "", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.CountSince(ctx, "u2", "", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)

	recs, err := store.ListSince(ctx, "u1", t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec-2", recs[0].ID)
	assert.Equal(t, domain.ActionDayCreation, recs[0].Kind)
	assert.Equal(t, "rec-3", recs[1].ID)
	assert.True(t, recs[1].Timestamp.Equal(t0.Add(2*time.Minute)))
}

func TestAppendTrimsOutsideRetention(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t, time.Hour)

	require.NoError(t, store.Append(ctx, record(1, domain.ActionDayCompletion, t0)))
	// exactly one retention later the first record is still inside the window
	require.NoError(t, store.Append(ctx, record(2, domain.ActionDayCompletion, t0.Add(time.Hour))))

	n, err := store.CountSince(ctx, "u1", domain.ActionDayCompletion, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Append(ctx, record(3, domain.ActionDayCompletion, t0.Add(time.Hour+time.Millisecond))))

	n, err = store.CountSince(ctx, "u1", domain.ActionDayCompletion, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	recs, err := store.ListSince(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec-2", recs[0].ID)
}

func TestDeleteBefore(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t, 0)

	require.NoError(t, store.Append(ctx, record(1, domain.ActionPlanCreation, t0)))
	require.NoError(t, store.Append(ctx, record(2, domain.ActionDayCreation, t0.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, record(3, domain.ActionPlanCreation, t0.Add(2*time.Minute))))

	// the cutoff itself is kept
	removed, err := store.DeleteBefore(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	n, err := store.CountSince(ctx, "u1", domain.ActionPlanCreation, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs, err := store.ListSince(ctx, "u1", time.Time{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec-2", recs[0].ID)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	stopped, err := miniredis.Run()
	require.NoError(t, err)
	addr := stopped.Addr()
	stopped.Close()
	_, err = Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
