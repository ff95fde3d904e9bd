package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/salescope/internal/models"
)

func setupTestDB(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "salescope-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	store := NewSQLiteStorage(filepath.Join(tmpDir, "test.db"))
	if err := store.Open(); err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("open database: %v", err)
	}

	if err := store.Migrate(); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("migrate database: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tables := []string{"tenants", "users", "notification_preferences", "anomalies", "forecasts", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}
}

func TestTenantRepository_CRUD(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenant := models.NewTenant("acme-stores")
	tenant.Timezone = "Europe/Berlin"
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	got, err := store.Tenants().GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if got.Name != "acme-stores" {
		t.Errorf("name = %q, want acme-stores", got.Name)
	}
	if got.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %q, want Europe/Berlin", got.Timezone)
	}

	if _, err := store.Tenants().GetByID(ctx, "missing"); err != ErrNotFound {
		t.Errorf("get missing tenant err = %v, want ErrNotFound", err)
	}

	list, err := store.Tenants().List(ctx)
	if err != nil {
		t.Fatalf("list tenants: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d tenants, want 1", len(list))
	}
}

func TestUserRepository_TenantScoping(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenantA := models.NewTenant("tenant-a")
	tenantB := models.NewTenant("tenant-b")
	for _, tn := range []*models.Tenant{tenantA, tenantB} {
		if err := store.Tenants().Create(ctx, tn); err != nil {
			t.Fatalf("create tenant: %v", err)
		}
	}

	userA := models.NewUser(tenantA.ID, "a@example.com", models.RoleAdmin)
	userB := models.NewUser(tenantB.ID, "b@example.com", models.RoleViewer)
	for _, u := range []*models.User{userA, userB} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	// A user is invisible through another tenant's scope.
	if _, err := store.Users().GetByID(ctx, tenantB.ID, userA.ID); err != ErrNotFound {
		t.Errorf("cross-tenant get err = %v, want ErrNotFound", err)
	}

	got, err := store.Users().GetByID(ctx, tenantA.ID, userA.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Email != "a@example.com" || got.Role != models.RoleAdmin {
		t.Errorf("user = %+v, want a@example.com admin", got)
	}

	listA, err := store.Users().ListByTenant(ctx, tenantA.ID)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(listA) != 1 {
		t.Errorf("tenant A users = %d, want 1", len(listA))
	}
}

func TestUserRepository_HasCapability(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenant := models.NewTenant("t")
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	admin := models.NewUser(tenant.ID, "admin@example.com", models.RoleAdmin)
	viewer := models.NewUser(tenant.ID, "viewer@example.com", models.RoleViewer)
	for _, u := range []*models.User{admin, viewer} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	tests := []struct {
		name   string
		userID string
		want   bool
	}{
		{"admin has it", admin.ID, true},
		{"viewer does not", viewer.ID, false},
		{"missing user does not", "missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Users().HasCapability(ctx, tenant.ID, tt.userID, models.CapabilityTenantAdmin)
			if err != nil {
				t.Fatalf("has capability: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasCapability = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreferenceRepository_ListEnabled(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenant := models.NewTenant("t")
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	user := models.NewUser(tenant.ID, "user@example.com", models.RoleViewer)
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	older := models.NewNotificationPreference(tenant.ID, user.ID, models.SeverityWarning, models.SeverityCritical)
	older.CreatedAt = time.Now().Add(-time.Hour)
	tenantWide := models.NewNotificationPreference(tenant.ID, "", models.SeverityCritical)
	disabled := models.NewNotificationPreference(tenant.ID, user.ID, models.SeverityCritical)
	disabled.EmailEnabled = false

	for _, p := range []*models.NotificationPreference{tenantWide, older, disabled} {
		if err := store.Preferences().Create(ctx, p); err != nil {
			t.Fatalf("create preference: %v", err)
		}
	}

	prefs, err := store.Preferences().ListEnabled(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("enabled preferences = %d, want 2", len(prefs))
	}

	// Creation order, oldest first.
	if prefs[0].ID != older.ID {
		t.Errorf("first preference = %s, want the older row", prefs[0].ID)
	}
	if !prefs[0].Severities.Contains(models.SeverityWarning) || !prefs[0].Severities.Contains(models.SeverityCritical) {
		t.Errorf("severities = %v, want both levels round-tripped", prefs[0].Severities)
	}
	if !prefs[1].TenantWide() {
		t.Error("second preference should be tenant-wide")
	}
}

func TestAnomalyRepository_ObservationDedupKey(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenant := models.NewTenant("t")
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	observedAt := time.Date(2026, 8, 20, 14, 5, 0, 0, time.UTC)
	anomaly := models.NewAnomaly(tenant.ID, models.MetricRevenue, observedAt)
	anomaly.ObservedValue = 1000
	anomaly.ZScore = 5.5
	anomaly.Severity = models.SeverityCritical
	if err := store.Anomalies().Create(ctx, anomaly); err != nil {
		t.Fatalf("create anomaly: %v", err)
	}

	got, err := store.Anomalies().GetByObservation(ctx, tenant.ID, models.MetricRevenue, observedAt)
	if err != nil {
		t.Fatalf("get by observation: %v", err)
	}
	if got == nil || got.ID != anomaly.ID {
		t.Fatalf("get by observation = %v, want the stored anomaly", got)
	}
	if got.Severity != models.SeverityCritical || got.ZScore != 5.5 {
		t.Errorf("anomaly = %+v, fields should round-trip", got)
	}

	// Absent observation returns nil, not an error.
	none, err := store.Anomalies().GetByObservation(ctx, tenant.ID, models.MetricRevenue, observedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("get absent observation: %v", err)
	}
	if none != nil {
		t.Errorf("absent observation = %v, want nil", none)
	}

	// The unique index rejects a second record for the same observation.
	dup := models.NewAnomaly(tenant.ID, models.MetricRevenue, observedAt)
	if err := store.Anomalies().Create(ctx, dup); err == nil {
		t.Error("duplicate (tenant, metric, observed_at) should be rejected")
	}
}

func TestAnomalyRepository_MarkAlerted(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenant := models.NewTenant("t")
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	anomaly := models.NewAnomaly(tenant.ID, models.MetricRevenue, time.Now().UTC())
	anomaly.Severity = models.SeverityCritical
	if err := store.Anomalies().Create(ctx, anomaly); err != nil {
		t.Fatalf("create anomaly: %v", err)
	}

	if err := store.Anomalies().MarkAlerted(ctx, anomaly.ID); err != nil {
		t.Fatalf("mark alerted: %v", err)
	}

	got, err := store.Anomalies().GetByID(ctx, anomaly.ID)
	if err != nil {
		t.Fatalf("get anomaly: %v", err)
	}
	if got.Status != models.AnomalyStatusAlerted {
		t.Errorf("status = %q, want alerted", got.Status)
	}

	// Idempotent: repeating the transition is not an error.
	if err := store.Anomalies().MarkAlerted(ctx, anomaly.ID); err != nil {
		t.Errorf("repeated mark alerted: %v", err)
	}
}

func TestAnomalyRepository_ListByTenantIsolated(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenantA := models.NewTenant("a")
	tenantB := models.NewTenant("b")
	for _, tn := range []*models.Tenant{tenantA, tenantB} {
		if err := store.Tenants().Create(ctx, tn); err != nil {
			t.Fatalf("create tenant: %v", err)
		}
	}

	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := models.NewAnomaly(tenantA.ID, models.MetricRevenue, base.Add(time.Duration(i)*time.Hour))
		a.Severity = models.SeverityWarning
		if err := store.Anomalies().Create(ctx, a); err != nil {
			t.Fatalf("create anomaly: %v", err)
		}
	}
	b := models.NewAnomaly(tenantB.ID, models.MetricRevenue, base)
	b.Severity = models.SeverityWarning
	if err := store.Anomalies().Create(ctx, b); err != nil {
		t.Fatalf("create anomaly: %v", err)
	}

	listA, err := store.Anomalies().ListByTenant(ctx, tenantA.ID, 10)
	if err != nil {
		t.Fatalf("list anomalies: %v", err)
	}
	if len(listA) != 3 {
		t.Errorf("tenant A anomalies = %d, want 3", len(listA))
	}
	for _, a := range listA {
		if a.TenantID != tenantA.ID {
			t.Errorf("anomaly %s leaked from tenant %s", a.ID, a.TenantID)
		}
	}

	limited, err := store.Anomalies().ListByTenant(ctx, tenantA.ID, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited list = %d, want 2", len(limited))
	}
}

func TestForecastRepository_UpsertOverwrites(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenant := models.NewTenant("t")
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	target := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	first := &models.Forecast{
		TenantID:       tenant.ID,
		Metric:         models.MetricRevenue,
		TargetDate:     target,
		PredictedValue: 100,
		GeneratedAt:    time.Now().UTC(),
	}
	if err := store.Forecasts().Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &models.Forecast{
		TenantID:       tenant.ID,
		Metric:         models.MetricRevenue,
		TargetDate:     target,
		PredictedValue: 250,
		GeneratedAt:    time.Now().UTC(),
	}
	if err := store.Forecasts().Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := store.Forecasts().ListByTenantMetric(ctx, tenant.ID, models.MetricRevenue)
	if err != nil {
		t.Fatalf("list forecasts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 after overwrite", len(rows))
	}
	if rows[0].PredictedValue != 250 {
		t.Errorf("predicted value = %v, want the overwriting 250", rows[0].PredictedValue)
	}
	if !rows[0].TargetDate.Equal(target) {
		t.Errorf("target date = %v, want %v", rows[0].TargetDate, target)
	}
}

func TestForecastRepository_DeleteBefore(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	tenant := models.NewTenant("t")
	if err := store.Tenants().Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int{-2, -1, 0, 1} {
		f := &models.Forecast{
			TenantID:       tenant.ID,
			Metric:         models.MetricRevenue,
			TargetDate:     cutoff.AddDate(0, 0, offset),
			PredictedValue: 100,
			GeneratedAt:    time.Now().UTC(),
		}
		if err := store.Forecasts().Upsert(ctx, f); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	pruned, err := store.Forecasts().DeleteBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want the 2 rows before the cutoff", pruned)
	}

	rows, err := store.Forecasts().ListByTenantMetric(ctx, tenant.ID, models.MetricRevenue)
	if err != nil {
		t.Fatalf("list forecasts: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("remaining rows = %d, want 2", len(rows))
	}
}
