package analytics

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/salescope/internal/metrics"
	"github.com/good-yellow-bee/salescope/internal/models"
	"github.com/good-yellow-bee/salescope/internal/storage"
)

// Default forecast parameters.
const (
	DefaultHorizonDays = 30
	DefaultHistoryDays = 56
)

// ForecastOptions configures the forecast generator.
type ForecastOptions struct {
	// HorizonDays is how many days forward each metric is projected.
	HorizonDays int
	// HistoryDays is how far back observations feed the model.
	HistoryDays int
	// Concurrency bounds parallel tenant processing in GenerateAll.
	Concurrency int
}

// ForecastGenerator projects tracked metrics forward for each tenant using a
// recency-weighted day-of-week model. Output is deterministic for identical
// input data, and regeneration overwrites prior forecasts for the same
// (tenant, metric, target date).
type ForecastGenerator struct {
	metrics   storage.MetricRepository
	forecasts storage.ForecastRepository
	tenants   storage.TenantRepository
	opts      ForecastOptions
	logger    *log.Logger
}

// NewForecastGenerator creates a forecast generator.
func NewForecastGenerator(metricRepo storage.MetricRepository, forecastRepo storage.ForecastRepository, tenantRepo storage.TenantRepository, opts ForecastOptions, logger *log.Logger) *ForecastGenerator {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = DefaultHorizonDays
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultHistoryDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ForecastGenerator{
		metrics:   metricRepo,
		forecasts: forecastRepo,
		tenants:   tenantRepo,
		opts:      opts,
		logger:    logger,
	}
}

// TenantForecast is the result of generating forecasts for one tenant.
type TenantForecast struct {
	TenantID string
	// Forecasts holds the upserted rows across all tracked metrics.
	Forecasts []*models.Forecast
	// SkippedMetrics lists metrics with no historical observations.
	SkippedMetrics []string
}

// Generate produces and upserts forecasts for every tracked metric of one
// tenant, for HorizonDays forward from asOf. Metrics without any historical
// observation are skipped, not failed.
func (g *ForecastGenerator) Generate(ctx context.Context, tenantID string, asOf time.Time) (*TenantForecast, error) {
	asOfDate := truncateToDay(asOf)
	from := asOfDate.AddDate(0, 0, -g.opts.HistoryDays)
	generatedAt := time.Now().UTC()

	result := &TenantForecast{TenantID: tenantID}

	for _, metric := range models.TrackedMetrics() {
		history, err := g.metrics.ReadRange(ctx, tenantID, metric, from, asOf)
		if err != nil {
			return nil, fmt.Errorf("read history for %s/%s: %w", tenantID, metric, err)
		}
		if len(history) == 0 {
			g.logger.Printf("forecast: tenant=%s metric=%s skipped, no history", tenantID, metric)
			result.SkippedMetrics = append(result.SkippedMetrics, metric)
			continue
		}

		model := fitWeekdayModel(history, asOfDate)

		for day := 1; day <= g.opts.HorizonDays; day++ {
			target := asOfDate.AddDate(0, 0, day)
			forecast := &models.Forecast{
				TenantID:       tenantID,
				Metric:         metric,
				TargetDate:     target,
				PredictedValue: model.predict(target.Weekday()),
				GeneratedAt:    generatedAt,
			}
			if err := g.forecasts.Upsert(ctx, forecast); err != nil {
				return nil, fmt.Errorf("upsert forecast for %s/%s: %w", tenantID, metric, err)
			}
			metrics.ForecastsWrittenTotal.Inc()
			result.Forecasts = append(result.Forecasts, forecast)
		}
	}

	return result, nil
}

// GenerateAll runs Generate for every registered tenant with bounded
// concurrency. One tenant's failure never aborts the others; failed tenants
// are reported in the batch report.
func (g *ForecastGenerator) GenerateAll(ctx context.Context, asOf time.Time) (*BatchReport, error) {
	tenants, err := g.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	report := &BatchReport{Started: time.Now()}
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)

	for _, tenant := range tenants {
		tenant := tenant
		eg.Go(func() error {
			result, err := g.Generate(ctx, tenant.ID, asOf)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				g.logger.Printf("forecast: tenant=%s failed: %v", tenant.ID, err)
				metrics.JobTenantFailures.WithLabelValues("forecast").Inc()
				report.Failed = append(report.Failed, TenantError{TenantID: tenant.ID, Err: err})
				return nil
			}
			if len(result.Forecasts) == 0 {
				report.Skipped++
				return nil
			}
			report.Processed++
			return nil
		})
	}

	eg.Wait()
	report.Finished = time.Now()
	return report, nil
}

// weekdayModel is a recency-weighted day-of-week average fit over a history
// window. Weights halve for every week of sample age, so recent behavior
// dominates while older same-weekday samples still inform the shape.
type weekdayModel struct {
	weekdaySum    [7]float64
	weekdayWeight [7]float64
	overallSum    float64
	overallWeight float64
}

func fitWeekdayModel(history []*models.MetricObservation, asOfDate time.Time) *weekdayModel {
	m := &weekdayModel{}
	for _, obs := range history {
		obsDate := truncateToDay(obs.Timestamp)
		ageDays := asOfDate.Sub(obsDate).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		weight := math.Pow(0.5, ageDays/7)

		wd := obs.Timestamp.UTC().Weekday()
		m.weekdaySum[wd] += obs.Value * weight
		m.weekdayWeight[wd] += weight
		m.overallSum += obs.Value * weight
		m.overallWeight += weight
	}
	return m
}

// predict returns the projected value for a weekday, falling back to the
// overall weighted mean when the weekday has no samples.
func (m *weekdayModel) predict(wd time.Weekday) float64 {
	if m.weekdayWeight[wd] > 0 {
		return m.weekdaySum[wd] / m.weekdayWeight[wd]
	}
	if m.overallWeight > 0 {
		return m.overallSum / m.overallWeight
	}
	return 0
}

// truncateToDay normalizes a timestamp to midnight UTC.
func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
