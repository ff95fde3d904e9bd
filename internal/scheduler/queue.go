package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/good-yellow-bee/salescope/internal/alerting"
	"github.com/good-yellow-bee/salescope/internal/metrics"
)

// QueueOptions configures the dispatch queue and its retry policy.
type QueueOptions struct {
	// Workers is the number of concurrent dispatch workers.
	Workers int
	// Size is the buffered queue capacity; enqueue drops when full.
	Size int
	// MaxAttempts is the total attempts per dispatch job.
	MaxAttempts int
	// RetryDelay is the wait between attempts.
	RetryDelay time.Duration
	// AttemptTimeout bounds each attempt's execution.
	AttemptTimeout time.Duration
}

// DefaultQueueOptions returns the default dispatch policy: 3 attempts,
// 60 seconds between attempts, 120 seconds per attempt.
func DefaultQueueOptions() QueueOptions {
	return QueueOptions{
		Workers:        2,
		Size:           256,
		MaxAttempts:    3,
		RetryDelay:     60 * time.Second,
		AttemptTimeout: 120 * time.Second,
	}
}

// DispatchFunc executes one dispatch attempt for an anomaly ID.
type DispatchFunc func(ctx context.Context, anomalyID string) alerting.Result

// DispatchQueue feeds anomaly IDs to background dispatch workers. Tasks
// carry only the anomaly identifier; workers re-fetch current state so
// delayed dispatch never sees a stale snapshot.
type DispatchQueue struct {
	opts     QueueOptions
	dispatch DispatchFunc
	logger   *log.Logger

	tasks chan string
	wg    sync.WaitGroup
}

// NewDispatchQueue creates a dispatch queue. Zero-valued options fall back
// to defaults.
func NewDispatchQueue(dispatch DispatchFunc, opts QueueOptions, logger *log.Logger) *DispatchQueue {
	defaults := DefaultQueueOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.Size <= 0 {
		opts.Size = defaults.Size
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaults.AttemptTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DispatchQueue{
		opts:     opts,
		dispatch: dispatch,
		logger:   logger,
		tasks:    make(chan string, opts.Size),
	}
}

// Start launches the worker goroutines. Workers drain until Close is called
// or the context is canceled.
func (q *DispatchQueue) Start(ctx context.Context) {
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case anomalyID, ok := <-q.tasks:
					if !ok {
						return
					}
					metrics.DispatchQueueDepth.Set(float64(len(q.tasks)))
					q.run(ctx, anomalyID)
				}
			}
		}()
	}
}

// Enqueue adds an anomaly ID without blocking. Returns false when the queue
// is full; the caller logs and the anomaly remains recorded for later review.
func (q *DispatchQueue) Enqueue(anomalyID string) bool {
	select {
	case q.tasks <- anomalyID:
		metrics.DispatchQueueDepth.Set(float64(len(q.tasks)))
		return true
	default:
		return false
	}
}

// Depth returns the number of queued anomaly IDs.
func (q *DispatchQueue) Depth() int {
	return len(q.tasks)
}

// Close stops accepting work and waits for in-flight dispatches to finish.
func (q *DispatchQueue) Close() {
	close(q.tasks)
	q.wg.Wait()
}

// run executes a dispatch job under the retry policy: each attempt is
// bounded by AttemptTimeout, retryable failures wait RetryDelay before the
// next attempt, and exhausting MaxAttempts is a terminal failure logged with
// the anomaly ID.
func (q *DispatchQueue) run(ctx context.Context, anomalyID string) {
	for attempt := 1; attempt <= q.opts.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, q.opts.AttemptTimeout)
		result := q.dispatch(attemptCtx, anomalyID)
		cancel()

		metrics.DispatchAttemptsTotal.WithLabelValues(result.Outcome.String()).Inc()

		switch result.Outcome {
		case alerting.OutcomeSuccess, alerting.OutcomeSkip:
			return
		case alerting.OutcomeFatal:
			q.logger.Printf("dispatch: anomaly=%s fatal failure, not retrying: %v", anomalyID, result.Err)
			return
		}

		if attempt == q.opts.MaxAttempts {
			q.logger.Printf("dispatch: anomaly=%s failed after %d attempts: %v",
				anomalyID, q.opts.MaxAttempts, result.Err)
			return
		}

		q.logger.Printf("dispatch: anomaly=%s attempt %d/%d failed, retrying in %s: %v",
			anomalyID, attempt, q.opts.MaxAttempts, q.opts.RetryDelay, result.Err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(q.opts.RetryDelay):
		}
	}
}
