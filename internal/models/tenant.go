package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated customer organization. Every other entity is scoped
// to exactly one tenant; no cross-tenant read or write is ever permitted.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTenant creates a new Tenant with a fresh ID.
func NewTenant(name string) *Tenant {
	return &Tenant{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
}
