package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/salescope/internal/models"
)

type sqliteAnomalyRepo struct {
	db *sql.DB
}

const anomalyColumns = `id, tenant_id, metric, observed_at, observed_value,
	baseline_mean, baseline_stddev, z_score, severity, status, created_at`

func (r *sqliteAnomalyRepo) Create(ctx context.Context, anomaly *models.Anomaly) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO anomalies (`+anomalyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		anomaly.ID, anomaly.TenantID, anomaly.Metric,
		anomaly.ObservedAt.UTC(), anomaly.ObservedValue,
		anomaly.BaselineMean, anomaly.BaselineStdDev, anomaly.ZScore,
		anomaly.Severity, anomaly.Status, anomaly.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert anomaly: %w", err)
	}
	return nil
}

func (r *sqliteAnomalyRepo) GetByID(ctx context.Context, id string) (*models.Anomaly, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+anomalyColumns+" FROM anomalies WHERE id = ?", id)
	return r.scanAnomaly(row)
}

func (r *sqliteAnomalyRepo) GetByObservation(ctx context.Context, tenantID, metric string, observedAt time.Time) (*models.Anomaly, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+anomalyColumns+" FROM anomalies WHERE tenant_id = ? AND metric = ? AND observed_at = ?",
		tenantID, metric, observedAt.UTC())
	anomaly, err := r.scanAnomaly(row)
	if err == ErrNotFound {
		return nil, nil
	}
	return anomaly, err
}

func (r *sqliteAnomalyRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*models.Anomaly, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+anomalyColumns+" FROM anomalies WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ?",
		tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []*models.Anomaly
	for rows.Next() {
		anomaly, err := r.scanAnomalyRow(rows)
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, anomaly)
	}
	return anomalies, rows.Err()
}

func (r *sqliteAnomalyRepo) MarkAlerted(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE anomalies SET status = ? WHERE id = ? AND status = ?",
		models.AnomalyStatusAlerted, id, models.AnomalyStatusOpen)
	if err != nil {
		return fmt.Errorf("mark anomaly alerted: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Already alerted or missing; either way the transition is settled.
		return nil
	}
	return nil
}

func (r *sqliteAnomalyRepo) scanAnomaly(row *sql.Row) (*models.Anomaly, error) {
	anomaly := &models.Anomaly{}
	var severity, status string

	err := row.Scan(
		&anomaly.ID, &anomaly.TenantID, &anomaly.Metric,
		&anomaly.ObservedAt, &anomaly.ObservedValue,
		&anomaly.BaselineMean, &anomaly.BaselineStdDev, &anomaly.ZScore,
		&severity, &status, &anomaly.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan anomaly: %w", err)
	}

	anomaly.Severity = models.ParseSeverity(severity)
	anomaly.Status = models.AnomalyStatus(status)
	return anomaly, nil
}

func (r *sqliteAnomalyRepo) scanAnomalyRow(rows *sql.Rows) (*models.Anomaly, error) {
	anomaly := &models.Anomaly{}
	var severity, status string

	err := rows.Scan(
		&anomaly.ID, &anomaly.TenantID, &anomaly.Metric,
		&anomaly.ObservedAt, &anomaly.ObservedValue,
		&anomaly.BaselineMean, &anomaly.BaselineStdDev, &anomaly.ZScore,
		&severity, &status, &anomaly.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan anomaly: %w", err)
	}

	anomaly.Severity = models.ParseSeverity(severity)
	anomaly.Status = models.AnomalyStatus(status)
	return anomaly, nil
}
