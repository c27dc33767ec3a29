// Package redis implements the activity ledger storage on Redis sorted sets.
package redis

import (
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/repository"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "activity"

// activityStore keeps two sorted sets per user: one with every record and one
// per action kind. Scores are unix milliseconds; members are the JSON records.
type activityStore struct {
	rdb       goredis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewActivityStore wraps an existing client. Keys expire after the retention
// window and are trimmed on every append.
func NewActivityStore(rdb goredis.UniversalClient, prefix string, retention time.Duration) repository.ActivityStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &activityStore{rdb: rdb, prefix: prefix, retention: retention}
}

// Connect builds a client for addr and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *activityStore) allKey(userID string) string {
	return s.prefix + ":" + userID + ":all"
}

func (s *activityStore) kindKey(userID string, kind domain.ActionKind) string {
	return s.prefix + ":" + userID + ":" + string(kind)
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Append writes the record into both sorted sets in one pipeline.
func (s *activityStore) Append(ctx context.Context, rec domain.ActivityRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	member := goredis.Z{Score: float64(rec.Timestamp.UnixMilli()), Member: raw}
	keys := []string{s.allKey(rec.UserID), s.kindKey(rec.UserID, rec.Kind)}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, k := range keys {
			pipe.ZAdd(ctx, k, member)
			if s.retention > 0 {
				pipe.ZRemRangeByScore(ctx, k, "-inf", "("+score(rec.Timestamp.Add(-s.retention)))
				pipe.Expire(ctx, k, s.retention)
			}
		}
		return nil
	})
	return err
}

// CountSince counts records in [since, +inf).
func (s *activityStore) CountSince(ctx context.Context, userID string, kind domain.ActionKind, since time.Time) (int, error) {
	key := s.allKey(userID)
	if kind != "" {
		key = s.kindKey(userID, kind)
	}
	n, err := s.rdb.ZCount(ctx, key, score(since), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ListSince returns records in [since, +inf), oldest first.
func (s *activityStore) ListSince(ctx context.Context, userID string, since time.Time) ([]domain.ActivityRecord, error) {
	members, err := s.rdb.ZRangeByScore(ctx, s.allKey(userID), &goredis.ZRangeBy{
		Min: score(since),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.ActivityRecord, 0, len(members))
	for _, m := range members {
		var rec domain.ActivityRecord
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			return nil, fmt.Errorf("decode activity record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DeleteBefore trims every activity key under the prefix. Each record lives
// in two sets; the returned count is taken from the per-user ":all" sets.
func (s *activityStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	iter := s.rdb.Scan(ctx, 0, s.prefix+":*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		n, err := s.rdb.ZRemRangeByScore(ctx, key, "-inf", "("+score(cutoff)).Result()
		if err != nil {
			return removed, err
		}
		if strings.HasSuffix(key, ":all") {
			removed += n
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}
