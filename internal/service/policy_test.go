package service

import (
	"alcyxob/wellness-app/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacingDelay(t *testing.T) {
	p := Pacing{
		Base:           500 * time.Millisecond,
		PerDay:         50 * time.Millisecond,
		Max:            3 * time.Second,
		LongPauseEvery: 7,
		LongPause:      5 * time.Second,
	}
	tests := []struct {
		day  int
		want time.Duration
	}{
		{day: 1, want: 550 * time.Millisecond},
		{day: 6, want: 800 * time.Millisecond},
		{day: 7, want: 850*time.Millisecond + 5*time.Second},
		{day: 50, want: 3 * time.Second},
		{day: 56, want: 8 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.day), "day %d", tt.day)
	}
	assert.Zero(t, Pacing{}.Delay(14))
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, MaxWait: 5 * time.Minute}
	assert.True(t, p.ShouldRetry(1, time.Minute))
	assert.True(t, p.ShouldRetry(1, 5*time.Minute))
	assert.False(t, p.ShouldRetry(2, time.Minute))
	assert.False(t, p.ShouldRetry(1, time.Hour))
}

func TestPoliciesFromConfigDefaults(t *testing.T) {
	retry, pacing := policiesFromConfig(config.OrchestratorConfig{})
	assert.Equal(t, RetryPolicy{MaxAttempts: 2, MaxWait: 5 * time.Minute}, retry)
	assert.Equal(t, Pacing{}, pacing)

	retry, _ = policiesFromConfig(config.OrchestratorConfig{RetryMaxAttempts: 4, MaxRateLimitWait: time.Hour})
	assert.Equal(t, 4, retry.MaxAttempts)
	assert.Equal(t, time.Hour, retry.MaxWait)
}
