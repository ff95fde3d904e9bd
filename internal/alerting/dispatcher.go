package alerting

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/salescope/internal/metrics"
	"github.com/good-yellow-bee/salescope/internal/notifier"
	"github.com/good-yellow-bee/salescope/internal/storage"
)

// Dispatcher delivers alert notifications for a single anomaly ID. It is the
// unit of work executed by the background dispatch queue: the anomaly is
// re-fetched by ID so delayed dispatch never acts on stale data.
type Dispatcher struct {
	anomalies storage.AnomalyRepository
	tenants   storage.TenantRepository
	resolver  *Resolver
	mailer    notifier.Mailer
	templates *notifier.Templates
	limiter   *rate.Limiter
	logger    *log.Logger

	// sent records confirmed per-recipient deliveries (anomaly id +
	// address) so a job-level retry does not re-send to recipients that
	// already received the alert.
	mu   sync.Mutex
	sent map[string]struct{}
}

// NewDispatcher creates an alert dispatcher. ratePerMinute bounds outbound
// sends across all dispatch jobs; zero disables pacing.
func NewDispatcher(anomalies storage.AnomalyRepository, tenants storage.TenantRepository, resolver *Resolver, mailer notifier.Mailer, templates *notifier.Templates, ratePerMinute int, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if ratePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60), ratePerMinute)
	}
	return &Dispatcher{
		anomalies: anomalies,
		tenants:   tenants,
		resolver:  resolver,
		mailer:    mailer,
		templates: templates,
		limiter:   limiter,
		logger:    logger,
		sent:      make(map[string]struct{}),
	}
}

// Dispatch loads the anomaly, resolves its recipients, and attempts delivery
// to each. Individual recipient failures are logged and counted without
// aborting the remaining recipients; only job-level failures (missing
// resolution data, every recipient failing) surface in the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, anomalyID string) Result {
	anomaly, err := d.anomalies.GetByID(ctx, anomalyID)
	if err == storage.ErrNotFound {
		// The anomaly is gone; retrying cannot help.
		d.logger.Printf("dispatch: anomaly %s not found, skipping", anomalyID)
		return Result{Outcome: OutcomeSkip}
	}
	if err != nil {
		return Result{Outcome: OutcomeRetryable, Err: fmt.Errorf("load anomaly %s: %w", anomalyID, err)}
	}

	tenantName := anomaly.TenantID
	if tenant, err := d.tenants.GetByID(ctx, anomaly.TenantID); err == nil {
		tenantName = tenant.Name
	}

	recipients, err := d.resolver.Resolve(ctx, anomaly)
	if err != nil {
		return Result{Outcome: OutcomeRetryable, Err: fmt.Errorf("resolve recipients for anomaly %s: %w", anomalyID, err)}
	}
	if len(recipients) == 0 {
		d.logger.Printf("dispatch: anomaly %s has no recipients", anomalyID)
		return Result{Outcome: OutcomeSuccess}
	}

	msg, err := d.templates.Render(anomaly, tenantName)
	if err != nil {
		return Result{Outcome: OutcomeFatal, Err: fmt.Errorf("render message for anomaly %s: %w", anomalyID, err)}
	}

	var delivered, failed, alreadySent int
	for _, address := range recipients {
		if d.alreadyDelivered(anomalyID, address) {
			alreadySent++
			continue
		}

		if err := d.limiter.Wait(ctx); err != nil {
			return Result{
				Outcome:   OutcomeRetryable,
				Delivered: delivered,
				Failed:    failed,
				Err:       fmt.Errorf("dispatch canceled: %w", err),
			}
		}

		if err := d.mailer.Send(ctx, address, msg); err != nil {
			failed++
			metrics.NotificationsTotal.WithLabelValues("failure").Inc()
			d.logger.Printf("dispatch: anomaly=%s recipient=%s delivery failed: %v", anomalyID, address, err)
			continue
		}

		d.recordDelivered(anomalyID, address)
		delivered++
		metrics.NotificationsTotal.WithLabelValues("success").Inc()
	}

	if delivered+alreadySent > 0 {
		if err := d.anomalies.MarkAlerted(ctx, anomalyID); err != nil {
			d.logger.Printf("dispatch: anomaly=%s mark alerted failed: %v", anomalyID, err)
		}
	}

	d.logger.Printf("dispatch: anomaly=%s delivered=%d failed=%d previously_sent=%d",
		anomalyID, delivered, failed, alreadySent)

	if delivered == 0 && alreadySent == 0 && failed > 0 {
		return Result{
			Outcome: OutcomeRetryable,
			Failed:  failed,
			Err:     fmt.Errorf("all %d recipients failed for anomaly %s", failed, anomalyID),
		}
	}

	return Result{Outcome: OutcomeSuccess, Delivered: delivered, Failed: failed}
}

func (d *Dispatcher) alreadyDelivered(anomalyID, address string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sent[sentKey(anomalyID, address)]
	return ok
}

// maxSentKeys bounds the delivery registry; past this size the oldest
// entries are long past their retry window and the map is reset.
const maxSentKeys = 100000

func (d *Dispatcher) recordDelivered(anomalyID, address string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.sent) >= maxSentKeys {
		d.sent = make(map[string]struct{})
	}
	d.sent[sentKey(anomalyID, address)] = struct{}{}
}

func sentKey(anomalyID, address string) string {
	return anomalyID + "\x00" + address
}
