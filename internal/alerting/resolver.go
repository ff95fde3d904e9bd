package alerting

import (
	"context"
	"fmt"
	"log"

	"github.com/good-yellow-bee/salescope/internal/models"
	"github.com/good-yellow-bee/salescope/internal/storage"
)

// Resolver maps an anomaly to the recipient addresses entitled to be
// notified, based on tenant-wide and per-user notification preferences.
type Resolver struct {
	prefs   storage.PreferenceRepository
	users   storage.UserRepository
	logger  *log.Logger
	verbose bool
}

// NewResolver creates a preference resolver.
func NewResolver(prefs storage.PreferenceRepository, users storage.UserRepository, logger *log.Logger, verbose bool) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		prefs:   prefs,
		users:   users,
		logger:  logger,
		verbose: verbose,
	}
}

// Resolve returns the flat, order-preserving list of recipient addresses for
// an anomaly. Duplicates pass through; suppression of repeat sends is the
// dispatcher's concern.
//
// Per-user preference rows resolve that user's address individually; rows
// whose user no longer exists or has no address are skipped. A tenant-wide
// row resolves to every user of the tenant holding the tenant.admin
// capability; the admin set is resolved for the first matching tenant-wide
// row only, so duplicate tenant-wide rows cannot multiply sends.
func (r *Resolver) Resolve(ctx context.Context, anomaly *models.Anomaly) ([]string, error) {
	prefs, err := r.prefs.ListEnabled(ctx, anomaly.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list preferences for tenant %s: %w", anomaly.TenantID, err)
	}

	var recipients []string
	tenantWideDone := false

	for _, pref := range prefs {
		if !pref.Matches(anomaly.Severity) {
			continue
		}

		if !pref.TenantWide() {
			user, err := r.users.GetByID(ctx, anomaly.TenantID, pref.UserID)
			if err == storage.ErrNotFound {
				if r.verbose {
					r.logger.Printf("resolve: preference %s references missing user %s, skipped", pref.ID, pref.UserID)
				}
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolve user %s: %w", pref.UserID, err)
			}
			if user.Email == "" {
				if r.verbose {
					r.logger.Printf("resolve: user %s has no address, skipped", user.ID)
				}
				continue
			}
			recipients = append(recipients, user.Email)
			continue
		}

		if tenantWideDone {
			continue
		}
		tenantWideDone = true

		admins, err := r.resolveTenantAdmins(ctx, anomaly.TenantID)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, admins...)
	}

	return recipients, nil
}

// resolveTenantAdmins returns the addresses of all admin-capable users of a
// tenant, in stable creation order.
func (r *Resolver) resolveTenantAdmins(ctx context.Context, tenantID string) ([]string, error) {
	users, err := r.users.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users for tenant %s: %w", tenantID, err)
	}

	var addresses []string
	for _, user := range users {
		ok, err := r.users.HasCapability(ctx, tenantID, user.ID, models.CapabilityTenantAdmin)
		if err != nil {
			return nil, fmt.Errorf("capability check for user %s: %w", user.ID, err)
		}
		if !ok || user.Email == "" {
			continue
		}
		addresses = append(addresses, user.Email)
	}
	return addresses, nil
}
