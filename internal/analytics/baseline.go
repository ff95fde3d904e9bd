package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/good-yellow-bee/salescope/internal/storage"
)

// Default baseline window parameters.
const (
	DefaultBaselineWindow = 14
	DefaultMinSamples     = 5
)

// Baseline is the rolling statistical summary of a tenant+metric series.
// It is derived on demand and never persisted.
type Baseline struct {
	Mean        float64
	StdDev      float64
	SampleCount int

	// Insufficient marks a window with too few samples to evaluate.
	// Callers must treat this as "cannot evaluate", never as "no anomaly".
	Insufficient bool
}

// BaselineCalculator computes trailing baselines from the metric store.
type BaselineCalculator struct {
	metrics    storage.MetricRepository
	windowSize int
	minSamples int
}

// NewBaselineCalculator creates a calculator over the given metric store.
// Non-positive parameters fall back to defaults.
func NewBaselineCalculator(metrics storage.MetricRepository, windowSize, minSamples int) *BaselineCalculator {
	if windowSize <= 0 {
		windowSize = DefaultBaselineWindow
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &BaselineCalculator{
		metrics:    metrics,
		windowSize: windowSize,
		minSamples: minSamples,
	}
}

// MinSamples returns the minimum sample count for a usable baseline.
func (c *BaselineCalculator) MinSamples() int {
	return c.minSamples
}

// Baseline computes mean and population standard deviation over the trailing
// window of observations strictly before asOf.
func (c *BaselineCalculator) Baseline(ctx context.Context, tenantID, metric string, asOf time.Time) (Baseline, error) {
	window, err := c.metrics.LastN(ctx, tenantID, metric, asOf, c.windowSize)
	if err != nil {
		return Baseline{}, fmt.Errorf("read baseline window for %s/%s: %w", tenantID, metric, err)
	}

	if len(window) < c.minSamples {
		return Baseline{SampleCount: len(window), Insufficient: true}, nil
	}

	var sum float64
	for _, obs := range window {
		sum += obs.Value
	}
	mean := sum / float64(len(window))

	var sqDiff float64
	for _, obs := range window {
		d := obs.Value - mean
		sqDiff += d * d
	}
	stdDev := math.Sqrt(sqDiff / float64(len(window)))

	return Baseline{
		Mean:        mean,
		StdDev:      stdDev,
		SampleCount: len(window),
	}, nil
}
