// Package alerting maps anomalies to notification recipients and delivers
// alerts with per-recipient failure isolation.
package alerting

// Outcome classifies the result of a dispatch job for the background
// execution layer, which decides whether to retry.
type Outcome int

const (
	// OutcomeSuccess means the dispatch completed; per-recipient failures
	// may still have occurred.
	OutcomeSuccess Outcome = iota
	// OutcomeSkip means the job had nothing to do and must not be retried,
	// e.g. the anomaly no longer exists.
	OutcomeSkip
	// OutcomeRetryable means a job-level failure occurred that a later
	// attempt may resolve.
	OutcomeRetryable
	// OutcomeFatal means the job can never succeed; no retry.
	OutcomeFatal
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return "skip"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the full report of one dispatch attempt.
type Result struct {
	Outcome   Outcome
	Delivered int
	Failed    int
	Err       error
}
