package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level within a tenant.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// CapabilityTenantAdmin marks users entitled to tenant-wide alert delivery.
const CapabilityTenantAdmin = "tenant.admin"

// User represents a tenant user reachable for notifications.
type User struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a new User with a fresh ID.
func NewUser(tenantID, email string, role Role) *User {
	return &User{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// HasCapability reports whether the user's role grants the capability.
func (u *User) HasCapability(capability string) bool {
	switch capability {
	case CapabilityTenantAdmin:
		return u.Role == RoleAdmin
	default:
		return false
	}
}

// ParseRole converts a string to Role.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "operator":
		return RoleOperator
	default:
		return RoleViewer
	}
}
