// Package metrics exposes Prometheus instruments for the plan pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wellness"

var (
	// PlansCreated counts plans that passed validation.
	// Labels: kind (exercise, nutrition)
	PlansCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "created_total",
			Help:      "Total number of plans created",
		},
		[]string{"kind"},
	)

	// PlanRejections counts plan creations refused before any write.
	// Labels: reason (quota, rate_limited, suspicious, invalid)
	PlanRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plans",
			Name:      "rejections_total",
			Help:      "Total number of rejected plan creations by reason",
		},
		[]string{"reason"},
	)

	// RunsFinished counts generation runs by outcome.
	// Labels: outcome (ready, partial, failed)
	RunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "finished_total",
			Help:      "Total number of generation runs by outcome",
		},
		[]string{"outcome"},
	)

	// RunsInFlight is the number of generation runs holding a dispatcher slot.
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "in_flight",
			Help:      "Generation runs currently executing",
		},
	)

	// DaysPersisted counts stored days.
	// Labels: kind, source (generated, fallback, synthesized)
	DaysPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "days",
			Name:      "persisted_total",
			Help:      "Total number of persisted days by content source",
		},
		[]string{"kind", "source"},
	)

	// GenerationDuration tracks calls to the remote content service.
	// Labels: result (success, error)
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "request_duration_seconds",
			Help:      "Duration of day generation requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"result"},
	)

	// RateLimitRejections counts limiter rejections.
	// Labels: action, window
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Total number of rate limiter rejections",
		},
		[]string{"action", "window"},
	)
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
