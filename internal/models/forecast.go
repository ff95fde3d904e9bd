package models

import "time"

// Forecast is a projected metric value for a future date, keyed by
// (tenant_id, metric, target_date). Regeneration overwrites the prior row.
type Forecast struct {
	TenantID       string    `json:"tenant_id"`
	Metric         string    `json:"metric"`
	TargetDate     time.Time `json:"target_date"`
	PredictedValue float64   `json:"predicted_value"`
	GeneratedAt    time.Time `json:"generated_at"`
}
