package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/good-yellow-bee/salescope/internal/models"
)

type sqlitePreferenceRepo struct {
	db *sql.DB
}

func (r *sqlitePreferenceRepo) Create(ctx context.Context, pref *models.NotificationPreference) error {
	severitiesJSON, err := json.Marshal(pref.Severities)
	if err != nil {
		return fmt.Errorf("marshal severities: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (id, tenant_id, user_id, email_enabled, severities_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		pref.ID, pref.TenantID, nullString(pref.UserID),
		boolToInt(pref.EmailEnabled), string(severitiesJSON), pref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert preference: %w", err)
	}
	return nil
}

func (r *sqlitePreferenceRepo) ListEnabled(ctx context.Context, tenantID string) ([]*models.NotificationPreference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, user_id, email_enabled, severities_json, created_at
		FROM notification_preferences
		WHERE tenant_id = ? AND email_enabled = 1
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*models.NotificationPreference
	for rows.Next() {
		pref := &models.NotificationPreference{}
		var userID sql.NullString
		var enabled int
		var severitiesJSON string

		err := rows.Scan(&pref.ID, &pref.TenantID, &userID, &enabled, &severitiesJSON, &pref.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}

		pref.UserID = userID.String
		pref.EmailEnabled = enabled != 0

		// The stored JSON array is the only external representation of the
		// severity filter; it becomes a typed set here and nowhere else.
		if err := json.Unmarshal([]byte(severitiesJSON), &pref.Severities); err != nil {
			return nil, fmt.Errorf("unmarshal severities for preference %s: %w", pref.ID, err)
		}

		prefs = append(prefs, pref)
	}
	return prefs, rows.Err()
}
