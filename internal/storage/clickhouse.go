package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/good-yellow-bee/salescope/internal/models"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for metric retention.
	RetentionDays int
}

// ClickHouseStorage implements MetricRepository backed by ClickHouse, the
// high-volume store for raw per-tenant sales metric observations.
type ClickHouseStorage struct {
	config  *ClickHouseConfig
	db      *sql.DB
	metrics *clickhouseMetricRepo
}

// NewClickHouseStorage creates a new ClickHouse storage.
func NewClickHouseStorage(config *ClickHouseConfig) *ClickHouseStorage {
	// Apply defaults
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 90
	}

	return &ClickHouseStorage{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseStorage) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	s.metrics = &clickhouseMetricRepo{db: db}
	return nil
}

// Close closes the database connection.
func (s *ClickHouseStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the sales_metrics table if it doesn't exist.
func (s *ClickHouseStorage) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS sales_metrics (
			tenant_id LowCardinality(String),
			metric LowCardinality(String),
			timestamp DateTime64(3, 'UTC'),
			value Float64,
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (tenant_id, metric, timestamp)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create sales_metrics table: %w", err)
	}

	return nil
}

// Ping checks the connection health.
func (s *ClickHouseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Metrics returns the metric repository.
func (s *ClickHouseStorage) Metrics() MetricRepository {
	return s.metrics
}

// clickhouseMetricRepo implements MetricRepository for ClickHouse.
type clickhouseMetricRepo struct {
	db *sql.DB
}

// InsertBatch inserts multiple observations using batch insert.
func (r *clickhouseMetricRepo) InsertBatch(ctx context.Context, observations []*models.MetricObservation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales_metrics (tenant_id, metric, timestamp, value)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.TenantID,
			obs.Metric,
			obs.Timestamp,
			obs.Value,
		)
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// ReadRange retrieves observations in [from, to], ascending by timestamp.
func (r *clickhouseMetricRepo) ReadRange(ctx context.Context, tenantID, metric string, from, to time.Time) ([]*models.MetricObservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, metric, timestamp, value
		FROM sales_metrics
		WHERE tenant_id = ? AND metric = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, tenantID, metric, from, to)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// Latest returns the most recent observation, or nil for an empty series.
func (r *clickhouseMetricRepo) Latest(ctx context.Context, tenantID, metric string) (*models.MetricObservation, error) {
	obs := &models.MetricObservation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, metric, timestamp, value
		FROM sales_metrics
		WHERE tenant_id = ? AND metric = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, tenantID, metric).Scan(&obs.TenantID, &obs.Metric, &obs.Timestamp, &obs.Value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return obs, nil
}

// LastN returns the trailing n observations strictly before the cutoff,
// ascending by timestamp.
func (r *clickhouseMetricRepo) LastN(ctx context.Context, tenantID, metric string, before time.Time, n int) ([]*models.MetricObservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, metric, timestamp, value
		FROM (
			SELECT tenant_id, metric, timestamp, value
			FROM sales_metrics
			WHERE tenant_id = ? AND metric = ? AND timestamp < ?
			ORDER BY timestamp DESC
			LIMIT ?
		)
		ORDER BY timestamp ASC
	`, tenantID, metric, before, n)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

func scanObservations(rows *sql.Rows) ([]*models.MetricObservation, error) {
	var observations []*models.MetricObservation
	for rows.Next() {
		obs := &models.MetricObservation{}
		if err := rows.Scan(&obs.TenantID, &obs.Metric, &obs.Timestamp, &obs.Value); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return observations, nil
}
