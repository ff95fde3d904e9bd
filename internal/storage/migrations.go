package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Tenant registry
			CREATE TABLE IF NOT EXISTS tenants (
				id TEXT PRIMARY KEY,
				name TEXT UNIQUE NOT NULL,
				timezone TEXT NOT NULL DEFAULT 'UTC',
				created_at DATETIME NOT NULL
			);

			-- Tenant users (notification recipients)
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				email TEXT NOT NULL,
				role TEXT NOT NULL DEFAULT 'viewer',
				created_at DATETIME NOT NULL,
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
			);

			-- Notification preferences; NULL user_id means tenant-wide
			CREATE TABLE IF NOT EXISTS notification_preferences (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				user_id TEXT,
				email_enabled INTEGER NOT NULL DEFAULT 1,
				severities_json TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Anomaly records; one row per (tenant, metric, observed_at)
			CREATE TABLE IF NOT EXISTS anomalies (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				metric TEXT NOT NULL,
				observed_at DATETIME NOT NULL,
				observed_value REAL NOT NULL,
				baseline_mean REAL NOT NULL,
				baseline_stddev REAL NOT NULL,
				z_score REAL NOT NULL,
				severity TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'open',
				created_at DATETIME NOT NULL,
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
			);

			-- Forecast records; regeneration overwrites
			CREATE TABLE IF NOT EXISTS forecasts (
				tenant_id TEXT NOT NULL,
				metric TEXT NOT NULL,
				target_date DATE NOT NULL,
				predicted_value REAL NOT NULL,
				generated_at DATETIME NOT NULL,
				PRIMARY KEY (tenant_id, metric, target_date),
				FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_users_tenant ON users(tenant_id);
			CREATE INDEX IF NOT EXISTS idx_prefs_tenant ON notification_preferences(tenant_id);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_anomalies_observation
				ON anomalies(tenant_id, metric, observed_at);
			CREATE INDEX IF NOT EXISTS idx_anomalies_tenant_created
				ON anomalies(tenant_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_forecasts_tenant ON forecasts(tenant_id, metric);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	// Create migrations table if not exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	// Apply pending migrations
	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction for migration %d: %w", m.Version, err)
		}

		_, err = tx.Exec(m.Up)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d (%s): %w", m.Version, m.Name, err)
		}

		_, err = tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
