package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Job type names.
const (
	JobForecast = "forecast"
	JobDetect   = "detect"
)

// Options configures the trigger schedule.
type Options struct {
	// ForecastAt is the local wall-clock time ("15:04") of the daily
	// forecast run.
	ForecastAt string
	// Location is the timezone the daily time is interpreted in.
	Location *time.Location
	// DetectInterval is the fixed interval between detection runs.
	DetectInterval time.Duration
}

// DefaultOptions returns the default trigger schedule.
func DefaultOptions() Options {
	return Options{
		ForecastAt:     "02:30",
		Location:       time.UTC,
		DetectInterval: 5 * time.Minute,
	}
}

// Scheduler fires the forecast job once daily at a fixed local time and the
// detection job on a fixed interval, each in background goroutines separate
// from any request-serving path. Per-job-type mutual exclusion is enforced
// by the job trackers.
type Scheduler struct {
	opts   Options
	logger *log.Logger

	forecastJob *Job
	detectJob   *Job

	forecastFn JobFunc
	detectFn   JobFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler over the given job bodies.
func New(forecastFn, detectFn JobFunc, opts Options, logger *log.Logger) (*Scheduler, error) {
	defaults := DefaultOptions()
	if opts.ForecastAt == "" {
		opts.ForecastAt = defaults.ForecastAt
	}
	if _, err := time.Parse("15:04", opts.ForecastAt); err != nil {
		return nil, fmt.Errorf("invalid forecast time %q: %w", opts.ForecastAt, err)
	}
	if opts.Location == nil {
		opts.Location = defaults.Location
	}
	if opts.DetectInterval <= 0 {
		opts.DetectInterval = defaults.DetectInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		opts:        opts,
		logger:      logger,
		forecastJob: NewJob(JobForecast, logger),
		detectJob:   NewJob(JobDetect, logger),
		forecastFn:  forecastFn,
		detectFn:    detectFn,
	}, nil
}

// Start launches the trigger goroutines.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.runDaily(ctx)
	go s.runInterval(ctx)

	s.logger.Printf("scheduler: forecast daily at %s %s, detection every %s",
		s.opts.ForecastAt, s.opts.Location, s.opts.DetectInterval)
}

// Stop cancels the triggers and waits for them to exit. In-flight job runs
// observe the canceled context.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Statuses returns snapshots of all job states.
func (s *Scheduler) Statuses() []Status {
	return []Status{
		s.forecastJob.Status(),
		s.detectJob.Status(),
	}
}

// TriggerForecast runs the forecast job immediately if it is not already
// running. Returns false when skipped.
func (s *Scheduler) TriggerForecast(ctx context.Context) bool {
	return s.forecastJob.TryRun(ctx, s.forecastFn)
}

// TriggerDetect runs the detection job immediately if it is not already
// running. Returns false when skipped.
func (s *Scheduler) TriggerDetect(ctx context.Context) bool {
	return s.detectJob.TryRun(ctx, s.detectFn)
}

// runDaily fires the forecast job at the configured wall-clock time.
func (s *Scheduler) runDaily(ctx context.Context) {
	defer s.wg.Done()

	for {
		wait := time.Until(s.nextDailyRun(time.Now()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			s.forecastJob.TryRun(ctx, s.forecastFn)
		}
	}
}

// runInterval fires the detection job on a fixed ticker; the interval is not
// wall-clock-dependent.
func (s *Scheduler) runInterval(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.DetectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.detectJob.TryRun(ctx, s.detectFn)
		}
	}
}

// nextDailyRun returns the next occurrence of the configured daily time
// strictly after now.
func (s *Scheduler) nextDailyRun(now time.Time) time.Time {
	at, _ := time.Parse("15:04", s.opts.ForecastAt)

	local := now.In(s.opts.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(),
		at.Hour(), at.Minute(), 0, 0, s.opts.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
