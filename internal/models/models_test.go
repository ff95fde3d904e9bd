package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSeveritySetJSON(t *testing.T) {
	set := NewSeveritySet(SeverityCritical, SeverityWarning)

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Levels marshal in severity order regardless of insertion order.
	if string(data) != `["warning","critical"]` {
		t.Errorf("marshal = %s, want ordered level names", data)
	}

	var decoded SeveritySet
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Contains(SeverityWarning) || !decoded.Contains(SeverityCritical) {
		t.Errorf("decoded set = %v, want both levels", decoded)
	}
}

func TestSeveritySetRejectsUnknownLevel(t *testing.T) {
	var set SeveritySet
	if err := json.Unmarshal([]byte(`["warning","panic"]`), &set); err == nil {
		t.Error("unknown level should be rejected")
	}
}

func TestSeverityRank(t *testing.T) {
	if SeverityCritical.Rank() <= SeverityWarning.Rank() {
		t.Error("critical must outrank warning")
	}
	if Severity("nonsense").Rank() != 0 {
		t.Error("unknown severity should rank zero")
	}
}

func TestUserHasCapability(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleOperator, false},
		{RoleViewer, false},
	}
	for _, tt := range tests {
		u := &User{Role: tt.role}
		if got := u.HasCapability(CapabilityTenantAdmin); got != tt.want {
			t.Errorf("role %s HasCapability = %v, want %v", tt.role, got, tt.want)
		}
	}

	admin := &User{Role: RoleAdmin}
	if admin.HasCapability("billing.export") {
		t.Error("unknown capability should never be granted")
	}
}

func TestNotificationPreferenceMatches(t *testing.T) {
	pref := NewNotificationPreference("t1", "u1", SeverityCritical)

	if !pref.Matches(SeverityCritical) {
		t.Error("preference should match its subscribed severity")
	}
	if pref.Matches(SeverityWarning) {
		t.Error("preference should not match an unsubscribed severity")
	}

	pref.EmailEnabled = false
	if pref.Matches(SeverityCritical) {
		t.Error("disabled preference must never match")
	}
}

func TestNotificationPreferenceTenantWide(t *testing.T) {
	if !NewNotificationPreference("t1", "", SeverityCritical).TenantWide() {
		t.Error("empty user ID should mean tenant-wide")
	}
	if NewNotificationPreference("t1", "u1", SeverityCritical).TenantWide() {
		t.Error("per-user preference should not be tenant-wide")
	}
}

func TestIsTrackedMetric(t *testing.T) {
	for _, m := range TrackedMetrics() {
		if !IsTrackedMetric(m) {
			t.Errorf("%s should be tracked", m)
		}
	}
	if IsTrackedMetric("refund_rate") {
		t.Error("unknown metric should not be tracked")
	}
}

func TestNewAnomalyDefaults(t *testing.T) {
	a := NewAnomaly("t1", MetricRevenue, time.Now().UTC())
	if a.ID == "" {
		t.Error("anomaly should get an ID")
	}
	if a.Status != AnomalyStatusOpen {
		t.Errorf("status = %q, want open", a.Status)
	}
}
