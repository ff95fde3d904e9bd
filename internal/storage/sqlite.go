package storage

import (
	"context"
	"database/sql"
	"fmt"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	tenants     *sqliteTenantRepo
	users       *sqliteUserRepo
	preferences *sqlitePreferenceRepo
	anomalies   *sqliteAnomalyRepo
	forecasts   *sqliteForecastRepo
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	// Enable foreign keys and WAL mode
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	// Initialize repositories
	s.tenants = &sqliteTenantRepo{db: db}
	s.users = &sqliteUserRepo{db: db}
	s.preferences = &sqlitePreferenceRepo{db: db}
	s.anomalies = &sqliteAnomalyRepo{db: db}
	s.forecasts = &sqliteForecastRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// Tenants returns the tenant repository.
func (s *SQLiteStorage) Tenants() TenantRepository {
	return s.tenants
}

// Users returns the user repository.
func (s *SQLiteStorage) Users() UserRepository {
	return s.users
}

// Preferences returns the notification preference repository.
func (s *SQLiteStorage) Preferences() PreferenceRepository {
	return s.preferences
}

// Anomalies returns the anomaly repository.
func (s *SQLiteStorage) Anomalies() AnomalyRepository {
	return s.anomalies
}

// Forecasts returns the forecast repository.
func (s *SQLiteStorage) Forecasts() ForecastRepository {
	return s.forecasts
}

// Helper functions shared by the sqlite repositories.

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
