package analytics

import (
	"fmt"
	"strings"
	"time"
)

// TenantError records a tenant whose processing failed inside a batch run.
type TenantError struct {
	TenantID string
	Err      error
}

func (e TenantError) Error() string {
	return fmt.Sprintf("tenant %s: %v", e.TenantID, e.Err)
}

// BatchReport summarizes a multi-tenant batch run. A run with failed tenants
// is a partial success: the remaining tenants were still processed.
type BatchReport struct {
	Processed int
	Skipped   int
	Failed    []TenantError
	Started   time.Time
	Finished  time.Time
}

// Ok reports whether every tenant was processed without error.
func (r *BatchReport) Ok() bool {
	return len(r.Failed) == 0
}

// FailedTenantIDs returns the IDs of tenants that failed, in report order.
func (r *BatchReport) FailedTenantIDs() []string {
	ids := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		ids[i] = f.TenantID
	}
	return ids
}

// Summary renders a one-line operator summary of the run.
func (r *BatchReport) Summary() string {
	if r.Ok() {
		return fmt.Sprintf("processed=%d skipped=%d duration=%s",
			r.Processed, r.Skipped, r.Finished.Sub(r.Started).Round(time.Millisecond))
	}
	return fmt.Sprintf("processed=%d skipped=%d failed=%d (%s) duration=%s",
		r.Processed, r.Skipped, len(r.Failed),
		strings.Join(r.FailedTenantIDs(), ","),
		r.Finished.Sub(r.Started).Round(time.Millisecond))
}
