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
)

func newDetector() (*FraudDetector, *activity.Ledger, *clock.Fake, *memory.ActivityStore) {
	store := memory.NewActivityStore()
	clk := clock.NewFake(t0)
	ledger := activity.NewLedger(store, clk, nil)
	return NewFraudDetector(ledger, FraudSettingsFromConfig(config.FraudConfig{}), nil), ledger, clk, store
}

func record(ledger *activity.Ledger, clk *clock.Fake, kind domain.ActionKind, n int, gap time.Duration) {
	for i := 0; i < n; i++ {
		ledger.Record(context.Background(), "u1", kind, nil)
		clk.Advance(gap)
	}
}

func TestFraudVolume(t *testing.T) {
	f, ledger, clk, _ := newDetector()
	record(ledger, clk, domain.ActionDayCompletion, 51, time.Minute+5*time.Second)

	// 51 records over ~55 minutes, none rapid-fire.
	suspicious, reason := f.IsSuspicious(context.Background(), "u1")
	assert.True(t, suspicious)
	assert.Equal(t, ReasonVolume, reason)
}

func TestFraudBurst(t *testing.T) {
	f, ledger, clk, _ := newDetector()
	record(ledger, clk, domain.ActionDayCompletion, 10, 2*time.Second)

	suspicious, reason := f.IsSuspicious(context.Background(), "u1")
	assert.True(t, suspicious)
	assert.Equal(t, ReasonBurst, reason)
}

func TestFraudBelowMinimumSample(t *testing.T) {
	f, ledger, clk, _ := newDetector()
	record(ledger, clk, domain.ActionDayCompletion, 9, time.Second)

	suspicious, _ := f.IsSuspicious(context.Background(), "u1")
	assert.False(t, suspicious)
}

func TestFraudHalfRapidIsNotSuspicious(t *testing.T) {
	f, ledger, clk, _ := newDetector()
	// 11 records, 10 gaps alternating 1s / 30s: exactly 50% rapid.
	for i := 0; i < 11; i++ {
		ledger.Record(context.Background(), "u1", domain.ActionDayCompletion, nil)
		if i%2 == 0 {
			clk.Advance(time.Second)
		} else {
			clk.Advance(30 * time.Second)
		}
	}
	suspicious, _ := f.IsSuspicious(context.Background(), "u1")
	assert.False(t, suspicious)
}

func TestFraudIgnoresSystemDrivenKinds(t *testing.T) {
	f, ledger, clk, _ := newDetector()
	record(ledger, clk, domain.ActionDayCreation, 60, time.Second)

	suspicious, _ := f.IsSuspicious(context.Background(), "u1")
	assert.False(t, suspicious)
}

func TestFraudOldActivityIgnored(t *testing.T) {
	f, ledger, clk, _ := newDetector()
	record(ledger, clk, domain.ActionDayCompletion, 20, time.Second)
	clk.Advance(2 * time.Hour)

	suspicious, _ := f.IsSuspicious(context.Background(), "u1")
	assert.False(t, suspicious)
}

func TestFraudFailsOpen(t *testing.T) {
	f, ledger, clk, store := newDetector()
	record(ledger, clk, domain.ActionDayCompletion, 20, time.Second)
	store.FailReads = true

	suspicious, reason := f.IsSuspicious(context.Background(), "u1")
	assert.False(t, suspicious)
	assert.Equal(t, ReasonNone, reason)
	assert.Equal(t, time.Hour, f.CoolDown())
}
