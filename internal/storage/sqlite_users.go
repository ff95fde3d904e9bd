package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/salescope/internal/models"
)

type sqliteUserRepo struct {
	db *sql.DB
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, tenant_id, email, role, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.TenantID, user.Email, user.Role, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, tenantID, id string) (*models.User, error) {
	user := &models.User{}
	var role string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, email, role, created_at FROM users WHERE tenant_id = ? AND id = ?",
		tenantID, id,
	).Scan(&user.ID, &user.TenantID, &user.Email, &role, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Role = models.ParseRole(role)
	return user, nil
}

func (r *sqliteUserRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, tenant_id, email, role, created_at FROM users WHERE tenant_id = ? ORDER BY created_at",
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		var role string
		if err := rows.Scan(&user.ID, &user.TenantID, &user.Email, &role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.Role = models.ParseRole(role)
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *sqliteUserRepo) HasCapability(ctx context.Context, tenantID, userID, capability string) (bool, error) {
	user, err := r.GetByID(ctx, tenantID, userID)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.HasCapability(capability), nil
}
