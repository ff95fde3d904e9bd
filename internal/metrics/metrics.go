// Package metrics provides Prometheus metrics for Salescope.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "salescope"
)

// Job metrics
var (
	// JobRunsTotal counts scheduled job runs by job type and result.
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Total number of scheduled job runs",
		},
		[]string{"job", "result"},
	)

	// JobSkippedTotal counts job runs skipped because a previous run of the
	// same job type was still in flight.
	JobSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "skipped_total",
			Help:      "Job runs skipped due to an in-flight run of the same type",
		},
		[]string{"job"},
	)

	// JobDuration tracks job run duration by job type.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Scheduled job run duration in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	// JobTenantFailures counts per-tenant failures inside batch runs.
	JobTenantFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "tenant_failures_total",
			Help:      "Per-tenant failures isolated inside batch job runs",
		},
		[]string{"job"},
	)
)

// Analytics metrics
var (
	// AnomaliesCreatedTotal counts persisted anomalies by severity.
	AnomaliesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "anomalies_created_total",
			Help:      "Total anomalies persisted by severity",
		},
		[]string{"severity"},
	)

	// BaselineInsufficientTotal counts tenant+metric evaluations skipped for
	// lack of baseline samples.
	BaselineInsufficientTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "baseline_insufficient_total",
			Help:      "Metric evaluations skipped due to insufficient baseline samples",
		},
	)

	// ForecastsWrittenTotal counts upserted forecast rows.
	ForecastsWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "forecasts_written_total",
			Help:      "Total forecast rows written",
		},
	)
)

// Dispatch metrics
var (
	// DispatchAttemptsTotal counts dispatch job attempts by outcome.
	DispatchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Total alert dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)

	// DispatchQueueDepth tracks pending anomaly IDs in the dispatch queue.
	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Anomaly IDs currently waiting in the dispatch queue",
		},
	)

	// DispatchDroppedTotal counts enqueue attempts dropped on a full queue.
	DispatchDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dropped_total",
			Help:      "Dispatch enqueues dropped because the queue was full",
		},
	)

	// NotificationsTotal counts per-recipient delivery outcomes.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "notifications_total",
			Help:      "Per-recipient notification delivery outcomes",
		},
		[]string{"result"},
	)
)
