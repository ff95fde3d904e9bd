// Package analytics implements the scheduled analytics pipeline: baseline
// calculation, daily forecast generation, and statistical anomaly detection
// over per-tenant sales metrics.
package analytics

import (
	"math"

	"github.com/good-yellow-bee/salescope/internal/models"
)

// maxZScore is the finite sentinel used when the baseline has zero spread
// but the observation deviates from the mean. A finite value keeps anomaly
// records JSON-representable.
const maxZScore = 1e9

// Thresholds holds the |z| boundaries for severity classification. They are
// configuration, applied identically across all tenants.
type Thresholds struct {
	WarningZ  float64
	CriticalZ float64
}

// DefaultThresholds returns the default severity thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{WarningZ: 2.0, CriticalZ: 3.0}
}

// Valid reports whether the thresholds are positive and ordered.
func (t Thresholds) Valid() bool {
	return t.WarningZ > 0 && t.CriticalZ >= t.WarningZ
}

// Classification is the result of evaluating an observation against a baseline.
type Classification struct {
	ZScore    float64
	Severity  models.Severity
	Anomalous bool
}

// Classify computes the Z-score of an observed value against a baseline and
// maps |z| onto a severity:
//
//	|z| <  warning            -> no anomaly
//	warning <= |z| < critical -> warning
//	|z| >= critical           -> critical
//
// A zero standard deviation with the observation equal to the mean is no
// anomaly; a zero standard deviation with any deviation is treated as
// maximal deviation.
func Classify(observed float64, baseline Baseline, t Thresholds) Classification {
	var z float64
	switch {
	case baseline.StdDev > 0:
		z = (observed - baseline.Mean) / baseline.StdDev
	case observed == baseline.Mean:
		return Classification{}
	case observed > baseline.Mean:
		z = maxZScore
	default:
		z = -maxZScore
	}

	absZ := math.Abs(z)
	if absZ < t.WarningZ {
		return Classification{ZScore: z}
	}

	severity := models.SeverityWarning
	if absZ >= t.CriticalZ {
		severity = models.SeverityCritical
	}

	return Classification{
		ZScore:    z,
		Severity:  severity,
		Anomalous: true,
	}
}
