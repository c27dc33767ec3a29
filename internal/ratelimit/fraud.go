package ratelimit

import (
	"alcyxob/wellness-app/internal/activity"
	"alcyxob/wellness-app/internal/config"
	"alcyxob/wellness-app/internal/domain"
	"alcyxob/wellness-app/internal/logger"
	"context"
	"time"
)

// Reason explains why activity was flagged.
type Reason string

const (
	ReasonNone   Reason = ""
	ReasonVolume Reason = "excessive_volume"
	ReasonBurst  Reason = "rapid_fire"
)

const fraudWindow = time.Hour

// FraudSettings tune the two heuristics.
type FraudSettings struct {
	MaxActionsPerHour int
	BurstGap          time.Duration
	BurstRatio        float64
	MinSample         int
	CoolDown          time.Duration
	IgnoreKinds       []domain.ActionKind
}

// FraudSettingsFromConfig fills zero values with the built-in defaults.
func FraudSettingsFromConfig(cfg config.FraudConfig) FraudSettings {
	def := config.Defaults().Fraud
	if cfg.MaxActionsPerHour <= 0 {
		cfg.MaxActionsPerHour = def.MaxActionsPerHour
	}
	if cfg.BurstGap <= 0 {
		cfg.BurstGap = def.BurstGap
	}
	if cfg.BurstRatio <= 0 {
		cfg.BurstRatio = def.BurstRatio
	}
	if cfg.MinSample <= 0 {
		cfg.MinSample = def.MinSample
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = def.CoolDown
	}
	if cfg.IgnoreKinds == nil {
		cfg.IgnoreKinds = def.IgnoreKinds
	}
	s := FraudSettings{
		MaxActionsPerHour: cfg.MaxActionsPerHour,
		BurstGap:          cfg.BurstGap,
		BurstRatio:        cfg.BurstRatio,
		MinSample:         cfg.MinSample,
		CoolDown:          cfg.CoolDown,
	}
	for _, k := range cfg.IgnoreKinds {
		s.IgnoreKinds = append(s.IgnoreKinds, domain.ActionKind(k))
	}
	return s
}

// FraudDetector flags accounts whose last hour of activity is either too
// voluminous or mostly rapid-fire. It is advisory and independent of Limiter.
type FraudDetector struct {
	ledger   *activity.Ledger
	settings FraudSettings
	log      *logger.Logger
}

func NewFraudDetector(ledger *activity.Ledger, settings FraudSettings, log *logger.Logger) *FraudDetector {
	if log == nil {
		log = logger.Nop()
	}
	return &FraudDetector{ledger: ledger, settings: settings, log: log}
}

// CoolDown is how long a flagged action should be held off.
func (f *FraudDetector) CoolDown() time.Duration {
	return f.settings.CoolDown
}

// IsSuspicious reports whether the user's recent activity trips either
// heuristic. A ledger read failure is logged and treated as not suspicious.
func (f *FraudDetector) IsSuspicious(ctx context.Context, userID string) (bool, Reason) {
	seq, err := f.ledger.RecentSequence(ctx, userID, fraudWindow, f.settings.IgnoreKinds...)
	if err != nil {
		f.log.Warn("fraud check degraded, allowing", "user", userID, "error", err)
		return false, ReasonNone
	}

	if len(seq) > f.settings.MaxActionsPerHour {
		return true, ReasonVolume
	}

	if len(seq) < f.settings.MinSample {
		return false, ReasonNone
	}
	pairs := len(seq) - 1
	rapid := 0
	for i := 1; i < len(seq); i++ {
		if seq[i].Sub(seq[i-1]) < f.settings.BurstGap {
			rapid++
		}
	}
	if float64(rapid)/float64(pairs) > f.settings.BurstRatio {
		return true, ReasonBurst
	}
	return false, ReasonNone
}
