package models

import (
	"time"

	"github.com/google/uuid"
)

// AnomalyStatus represents the lifecycle state of an anomaly.
// The only permitted transition is open -> alerted.
type AnomalyStatus string

const (
	AnomalyStatusOpen    AnomalyStatus = "open"
	AnomalyStatusAlerted AnomalyStatus = "alerted"
)

// Anomaly records a statistically significant deviation of an observed
// metric value from its baseline. Immutable after creation except the
// status transition.
type Anomaly struct {
	ID             string        `json:"id"`
	TenantID       string        `json:"tenant_id"`
	Metric         string        `json:"metric"`
	ObservedAt     time.Time     `json:"observed_at"`
	ObservedValue  float64       `json:"observed_value"`
	BaselineMean   float64       `json:"baseline_mean"`
	BaselineStdDev float64       `json:"baseline_stddev"`
	ZScore         float64       `json:"z_score"`
	Severity       Severity      `json:"severity"`
	Status         AnomalyStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewAnomaly creates an open anomaly with a fresh ID.
func NewAnomaly(tenantID, metric string, observedAt time.Time) *Anomaly {
	return &Anomaly{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Metric:     metric,
		ObservedAt: observedAt,
		Status:     AnomalyStatusOpen,
		CreatedAt:  time.Now(),
	}
}
