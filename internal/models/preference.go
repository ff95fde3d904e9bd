package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPreference controls which anomaly severities trigger an email
// for a tenant. A preference with an empty UserID is tenant-wide: it applies
// to every user of the tenant holding the tenant.admin capability rather
// than one person.
type NotificationPreference struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenant_id"`
	UserID       string      `json:"user_id,omitempty"`
	EmailEnabled bool        `json:"email_enabled"`
	Severities   SeveritySet `json:"severities"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewNotificationPreference creates an enabled preference with a fresh ID.
// Pass an empty userID for a tenant-wide preference.
func NewNotificationPreference(tenantID, userID string, severities ...Severity) *NotificationPreference {
	return &NotificationPreference{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		UserID:       userID,
		EmailEnabled: true,
		Severities:   NewSeveritySet(severities...),
		CreatedAt:    time.Now(),
	}
}

// TenantWide reports whether the preference applies to all tenant admins.
func (p *NotificationPreference) TenantWide() bool {
	return p.UserID == ""
}

// Matches reports whether an anomaly of the given severity may trigger a
// notification under this preference.
func (p *NotificationPreference) Matches(s Severity) bool {
	return p.EmailEnabled && p.Severities.Contains(s)
}
