package analytics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/salescope/internal/metrics"
	"github.com/good-yellow-bee/salescope/internal/models"
	"github.com/good-yellow-bee/salescope/internal/storage"
)

// AlertQueue accepts anomaly IDs for asynchronous alert dispatch. Enqueue
// reports false when the queue is full; the anomaly stays recorded either way.
type AlertQueue interface {
	Enqueue(anomalyID string) bool
}

// DetectorOptions configures the anomaly detector.
type DetectorOptions struct {
	// Thresholds are the initial severity thresholds; replaceable at runtime
	// via SetThresholds.
	Thresholds Thresholds
	// Concurrency bounds parallel tenant processing in DetectAll.
	Concurrency int
	// Verbose enables skip-level logging.
	Verbose bool
}

// Detector evaluates the latest observation of each tracked metric against
// its baseline and records qualifying deviations as anomalies. Critical
// anomalies are enqueued for alert dispatch by ID only.
type Detector struct {
	metricRepo  storage.MetricRepository
	anomalyRepo storage.AnomalyRepository
	tenantRepo  storage.TenantRepository
	baselines   *BaselineCalculator
	queue       AlertQueue
	logger      *log.Logger
	concurrency int
	verbose     bool

	mu         sync.RWMutex
	thresholds Thresholds
}

// NewDetector creates an anomaly detector.
func NewDetector(metricRepo storage.MetricRepository, anomalyRepo storage.AnomalyRepository, tenantRepo storage.TenantRepository, baselines *BaselineCalculator, queue AlertQueue, opts DetectorOptions, logger *log.Logger) *Detector {
	if !opts.Thresholds.Valid() {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{
		metricRepo:  metricRepo,
		anomalyRepo: anomalyRepo,
		tenantRepo:  tenantRepo,
		baselines:   baselines,
		queue:       queue,
		logger:      logger,
		concurrency: opts.Concurrency,
		verbose:     opts.Verbose,
		thresholds:  opts.Thresholds,
	}
}

// Thresholds returns the currently active severity thresholds.
func (d *Detector) Thresholds() Thresholds {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.thresholds
}

// SetThresholds replaces the severity thresholds. Invalid thresholds are
// rejected so a bad config reload cannot disable detection.
func (d *Detector) SetThresholds(t Thresholds) error {
	if !t.Valid() {
		return fmt.Errorf("invalid thresholds: warning=%v critical=%v", t.WarningZ, t.CriticalZ)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.thresholds = t
	return nil
}

// Detect evaluates every tracked metric for one tenant and returns the newly
// created anomalies. Metrics with an insufficient baseline are skipped.
func (d *Detector) Detect(ctx context.Context, tenantID string) ([]*models.Anomaly, error) {
	thresholds := d.Thresholds()

	var created []*models.Anomaly

	for _, metric := range models.TrackedMetrics() {
		latest, err := d.metricRepo.Latest(ctx, tenantID, metric)
		if err != nil {
			return created, fmt.Errorf("latest observation for %s/%s: %w", tenantID, metric, err)
		}
		if latest == nil {
			continue
		}

		baseline, err := d.baselines.Baseline(ctx, tenantID, metric, latest.Timestamp)
		if err != nil {
			return created, err
		}
		if baseline.Insufficient {
			metrics.BaselineInsufficientTotal.Inc()
			if d.verbose {
				d.logger.Printf("detect: tenant=%s metric=%s skipped, %d/%d baseline samples",
					tenantID, metric, baseline.SampleCount, d.baselines.MinSamples())
			}
			continue
		}

		class := Classify(latest.Value, baseline, thresholds)
		if !class.Anomalous {
			continue
		}

		// One anomaly per (tenant, metric, timestamp); a restarted run must
		// not duplicate.
		existing, err := d.anomalyRepo.GetByObservation(ctx, tenantID, metric, latest.Timestamp)
		if err != nil {
			return created, fmt.Errorf("dedup lookup for %s/%s: %w", tenantID, metric, err)
		}
		if existing != nil {
			continue
		}

		anomaly := models.NewAnomaly(tenantID, metric, latest.Timestamp)
		anomaly.ObservedValue = latest.Value
		anomaly.BaselineMean = baseline.Mean
		anomaly.BaselineStdDev = baseline.StdDev
		anomaly.ZScore = class.ZScore
		anomaly.Severity = class.Severity

		if err := d.anomalyRepo.Create(ctx, anomaly); err != nil {
			return created, fmt.Errorf("persist anomaly for %s/%s: %w", tenantID, metric, err)
		}
		metrics.AnomaliesCreatedTotal.WithLabelValues(string(anomaly.Severity)).Inc()
		created = append(created, anomaly)

		d.logger.Printf("detect: tenant=%s metric=%s severity=%s z=%.2f observed=%.2f mean=%.2f",
			tenantID, metric, anomaly.Severity, anomaly.ZScore, anomaly.ObservedValue, anomaly.BaselineMean)

		// Only critical severities trigger outbound notification; warnings
		// are recorded for display.
		if anomaly.Severity == models.SeverityCritical && d.queue != nil {
			if !d.queue.Enqueue(anomaly.ID) {
				metrics.DispatchDroppedTotal.Inc()
				d.logger.Printf("detect: dispatch queue full, dropped anomaly %s", anomaly.ID)
			}
		}
	}

	return created, nil
}

// DetectAll runs Detect for every registered tenant with bounded concurrency.
// One tenant's failure never blocks the others.
func (d *Detector) DetectAll(ctx context.Context) (*BatchReport, error) {
	tenants, err := d.tenantRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	report := &BatchReport{Started: time.Now()}
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.concurrency)

	for _, tenant := range tenants {
		tenant := tenant
		eg.Go(func() error {
			_, err := d.Detect(ctx, tenant.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.logger.Printf("detect: tenant=%s failed: %v", tenant.ID, err)
				metrics.JobTenantFailures.WithLabelValues("detect").Inc()
				report.Failed = append(report.Failed, TenantError{TenantID: tenant.ID, Err: err})
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
