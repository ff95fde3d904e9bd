package models

import "time"

// Tracked sales metric names. Observations outside this set are stored but
// never forecast or evaluated for anomalies.
const (
	MetricRevenue          = "revenue"
	MetricTransactionCount = "transaction_count"
	MetricAvgTicket        = "avg_ticket"
)

// TrackedMetrics returns the metric names evaluated by the analytics pipeline.
func TrackedMetrics() []string {
	return []string{MetricRevenue, MetricTransactionCount, MetricAvgTicket}
}

// IsTrackedMetric reports whether the name is an evaluated metric.
func IsTrackedMetric(name string) bool {
	switch name {
	case MetricRevenue, MetricTransactionCount, MetricAvgTicket:
		return true
	}
	return false
}

// MetricObservation is a single immutable time-series sample for a tenant.
// Observations are ordered by timestamp within a tenant+metric series.
type MetricObservation struct {
	TenantID  string    `json:"tenant_id"`
	Metric    string    `json:"metric"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
