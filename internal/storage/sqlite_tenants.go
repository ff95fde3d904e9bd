package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/salescope/internal/models"
)

type sqliteTenantRepo struct {
	db *sql.DB
}

func (r *sqliteTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tenants (id, name, timezone, created_at) VALUES (?, ?, ?, ?)",
		tenant.ID, tenant.Name, tenant.Timezone, tenant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (r *sqliteTenantRepo) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, timezone, created_at FROM tenants WHERE id = ?", id,
	).Scan(&tenant.ID, &tenant.Name, &tenant.Timezone, &tenant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return tenant, nil
}

func (r *sqliteTenantRepo) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, timezone, created_at FROM tenants ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.Timezone, &tenant.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}
