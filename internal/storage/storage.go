// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/salescope/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the main interface for metadata database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Tenants() TenantRepository
	Users() UserRepository
	Preferences() PreferenceRepository
	Anomalies() AnomalyRepository
	Forecasts() ForecastRepository
}

// TenantRepository defines operations for the tenant registry.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}

// UserRepository defines operations for tenant users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, tenantID, id string) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.User, error)
	// HasCapability reports whether the user holds the named capability.
	HasCapability(ctx context.Context, tenantID, userID, capability string) (bool, error)
}

// PreferenceRepository defines operations for notification preferences.
type PreferenceRepository interface {
	Create(ctx context.Context, pref *models.NotificationPreference) error
	// ListEnabled returns all preferences for a tenant with email delivery
	// enabled, ordered by creation time.
	ListEnabled(ctx context.Context, tenantID string) ([]*models.NotificationPreference, error)
}

// AnomalyRepository defines operations for anomaly records.
type AnomalyRepository interface {
	Create(ctx context.Context, anomaly *models.Anomaly) error
	GetByID(ctx context.Context, id string) (*models.Anomaly, error)
	// GetByObservation returns the anomaly recorded for the exact
	// (tenant, metric, observed_at) triple, or nil when none exists.
	GetByObservation(ctx context.Context, tenantID, metric string, observedAt time.Time) (*models.Anomaly, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*models.Anomaly, error)
	// MarkAlerted transitions an anomaly from open to alerted.
	MarkAlerted(ctx context.Context, id string) error
}

// ForecastRepository defines operations for forecast records.
type ForecastRepository interface {
	// Upsert writes a forecast, overwriting any prior row for the same
	// (tenant, metric, target_date).
	Upsert(ctx context.Context, forecast *models.Forecast) error
	ListByTenantMetric(ctx context.Context, tenantID, metric string) ([]*models.Forecast, error)
	// DeleteBefore prunes forecasts whose target date is before the cutoff.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// MetricRepository defines read/write access to the raw sales metric series.
// All access is partitioned by tenant at the query level.
type MetricRepository interface {
	InsertBatch(ctx context.Context, observations []*models.MetricObservation) error
	// ReadRange returns observations in [from, to], ascending by timestamp.
	ReadRange(ctx context.Context, tenantID, metric string, from, to time.Time) ([]*models.MetricObservation, error)
	// Latest returns the most recent observation, or nil when the series is empty.
	Latest(ctx context.Context, tenantID, metric string) (*models.MetricObservation, error)
	// LastN returns the trailing n observations strictly before the cutoff,
	// ascending by timestamp.
	LastN(ctx context.Context, tenantID, metric string, before time.Time, n int) ([]*models.MetricObservation, error)
}
