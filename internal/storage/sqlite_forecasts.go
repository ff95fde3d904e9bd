package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/salescope/internal/models"
)

type sqliteForecastRepo struct {
	db *sql.DB
}

func (r *sqliteForecastRepo) Upsert(ctx context.Context, forecast *models.Forecast) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forecasts (tenant_id, metric, target_date, predicted_value, generated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, metric, target_date)
		DO UPDATE SET predicted_value = excluded.predicted_value,
		              generated_at = excluded.generated_at
	`,
		forecast.TenantID, forecast.Metric, dateOnly(forecast.TargetDate),
		forecast.PredictedValue, forecast.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert forecast: %w", err)
	}
	return nil
}

func (r *sqliteForecastRepo) ListByTenantMetric(ctx context.Context, tenantID, metric string) ([]*models.Forecast, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, metric, target_date, predicted_value, generated_at
		FROM forecasts
		WHERE tenant_id = ? AND metric = ?
		ORDER BY target_date
	`, tenantID, metric)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	var forecasts []*models.Forecast
	for rows.Next() {
		f := &models.Forecast{}
		var target string
		if err := rows.Scan(&f.TenantID, &f.Metric, &target, &f.PredictedValue, &f.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		f.TargetDate, err = time.ParseInLocation("2006-01-02", target, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse target date %q: %w", target, err)
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}

func (r *sqliteForecastRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM forecasts WHERE target_date < ?", dateOnly(before))
	if err != nil {
		return 0, fmt.Errorf("delete forecasts: %w", err)
	}
	return result.RowsAffected()
}

// dateOnly normalizes a timestamp to its UTC calendar date string, the
// canonical key form for forecast target dates.
func dateOnly(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
