// Package scheduler runs the background analytics jobs: the daily forecast
// run, the periodic anomaly detection run, and the alert dispatch queue.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/good-yellow-bee/salescope/internal/metrics"
)

// JobState is the lifecycle state of a job type.
type JobState string

const (
	JobStateIdle    JobState = "idle"
	JobStateRunning JobState = "running"
)

// JobResult is the terminal result of the last run of a job type.
type JobResult string

const (
	JobResultNone    JobResult = "none"
	JobResultSuccess JobResult = "success"
	JobResultFailure JobResult = "failure"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// Job tracks run state for one job type and enforces mutual exclusion: a new
// run is skipped, not queued, while a previous run of the same type is still
// in flight. Different job types run concurrently.
type Job struct {
	name   string
	logger *log.Logger

	mu         sync.Mutex
	state      JobState
	lastResult JobResult
	lastRun    time.Time
	lastErr    error
}

// NewJob creates an idle job tracker.
func NewJob(name string, logger *log.Logger) *Job {
	if logger == nil {
		logger = log.Default()
	}
	return &Job{
		name:       name,
		logger:     logger,
		state:      JobStateIdle,
		lastResult: JobResultNone,
	}
}

// Name returns the job type name.
func (j *Job) Name() string {
	return j.name
}

// TryRun executes fn unless a run of this job type is already in flight, in
// which case the run is skipped silently (logged, counted, not queued).
// Returns false when skipped.
func (j *Job) TryRun(ctx context.Context, fn JobFunc) bool {
	j.mu.Lock()
	if j.state == JobStateRunning {
		j.mu.Unlock()
		j.logger.Printf("scheduler: job %s still running, skipping this trigger", j.name)
		metrics.JobSkippedTotal.WithLabelValues(j.name).Inc()
		return false
	}
	j.state = JobStateRunning
	j.mu.Unlock()

	started := time.Now()
	err := fn(ctx)
	duration := time.Since(started)
	metrics.JobDuration.WithLabelValues(j.name).Observe(duration.Seconds())

	j.mu.Lock()
	j.state = JobStateIdle
	j.lastRun = started
	j.lastErr = err
	if err != nil {
		j.lastResult = JobResultFailure
		metrics.JobRunsTotal.WithLabelValues(j.name, "failure").Inc()
		j.logger.Printf("scheduler: job %s failed after %s: %v", j.name, duration.Round(time.Millisecond), err)
	} else {
		j.lastResult = JobResultSuccess
		metrics.JobRunsTotal.WithLabelValues(j.name, "success").Inc()
	}
	j.mu.Unlock()

	return true
}

// Status is a snapshot of a job's state for operational reporting.
type Status struct {
	Name       string    `json:"name"`
	State      JobState  `json:"state"`
	LastResult JobResult `json:"last_result"`
	LastRun    time.Time `json:"last_run,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

// Status returns a snapshot of the job state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Status{
		Name:       j.name,
		State:      j.state,
		LastResult: j.lastResult,
		LastRun:    j.lastRun,
	}
	if j.lastErr != nil {
		s.LastError = j.lastErr.Error()
	}
	return s
}
