package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/good-yellow-bee/salescope/internal/models"
	"github.com/good-yellow-bee/salescope/internal/scheduler"
)

// fakeAnomalies serves canned anomalies and records the requested limit.
type fakeAnomalies struct {
	anomalies []*models.Anomaly
	lastLimit int
	err       error
}

func (r *fakeAnomalies) Create(ctx context.Context, anomaly *models.Anomaly) error { return nil }

func (r *fakeAnomalies) GetByID(ctx context.Context, id string) (*models.Anomaly, error) {
	return nil, nil
}

func (r *fakeAnomalies) GetByObservation(ctx context.Context, tenantID, metric string, observedAt time.Time) (*models.Anomaly, error) {
	return nil, nil
}

func (r *fakeAnomalies) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*models.Anomaly, error) {
	r.lastLimit = limit
	if r.err != nil {
		return nil, r.err
	}
	var out []*models.Anomaly
	for _, a := range r.anomalies {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAnomalies) MarkAlerted(ctx context.Context, id string) error { return nil }

// fakeForecasts serves canned forecasts.
type fakeForecasts struct {
	forecasts []*models.Forecast
}

func (r *fakeForecasts) Upsert(ctx context.Context, forecast *models.Forecast) error { return nil }

func (r *fakeForecasts) ListByTenantMetric(ctx context.Context, tenantID, metric string) ([]*models.Forecast, error) {
	var out []*models.Forecast
	for _, f := range r.forecasts {
		if f.TenantID == tenantID && f.Metric == metric {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeForecasts) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// fakeStatus is a static StatusSource.
type fakeStatus struct{}

func (fakeStatus) Statuses() []scheduler.Status {
	return []scheduler.Status{
		{Name: scheduler.JobForecast, State: scheduler.JobStateIdle, LastResult: scheduler.JobResultSuccess},
		{Name: scheduler.JobDetect, State: scheduler.JobStateRunning, LastResult: scheduler.JobResultNone},
	}
}

func (fakeStatus) QueueDepth() int { return 4 }

// fakePinger fails when broken.
type fakePinger struct {
	broken bool
}

func (p fakePinger) Ping(ctx context.Context) error {
	if p.broken {
		return fmt.Errorf("connection refused")
	}
	return nil
}

func newTestServer(anomalies *fakeAnomalies, forecasts *fakeForecasts, checkers map[string]Pinger) *Server {
	return NewServer(&Config{Address: ":0"}, anomalies, forecasts, fakeStatus{}, checkers, nil)
}

func doRequest(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeAnomalies{}, &fakeForecasts{}, nil)
	rec, resp := doRequest(t, s, "/healthz")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if resp.Error != "" {
		t.Errorf("error = %q, want none", resp.Error)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]Pinger
		want     int
	}{
		{
			name:     "all healthy",
			checkers: map[string]Pinger{"sqlite": fakePinger{}, "clickhouse": fakePinger{}},
			want:     http.StatusOK,
		},
		{
			name:     "one degraded",
			checkers: map[string]Pinger{"sqlite": fakePinger{}, "clickhouse": fakePinger{broken: true}},
			want:     http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeAnomalies{}, &fakeForecasts{}, tt.checkers)
			rec, _ := doRequest(t, s, "/readyz")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(&fakeAnomalies{}, &fakeForecasts{}, nil)
	rec, resp := doRequest(t, s, "/api/v1/status")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	data, _ := json.Marshal(resp.Data)
	var status StatusResponse
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(status.Jobs) != 2 {
		t.Errorf("jobs = %d, want 2", len(status.Jobs))
	}
	if status.QueueDepth != 4 {
		t.Errorf("queue depth = %d, want 4", status.QueueDepth)
	}
}

func TestHandleAnomalies(t *testing.T) {
	anomaly := models.NewAnomaly("t1", models.MetricRevenue, time.Now().UTC())
	anomaly.Severity = models.SeverityCritical
	repo := &fakeAnomalies{anomalies: []*models.Anomaly{anomaly}}
	s := newTestServer(repo, &fakeForecasts{}, nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing tenant", "/api/v1/anomalies", http.StatusBadRequest},
		{"valid", "/api/v1/anomalies?tenant_id=t1", http.StatusOK},
		{"bad limit", "/api/v1/anomalies?tenant_id=t1&limit=0", http.StatusBadRequest},
		{"limit too large", "/api/v1/anomalies?tenant_id=t1&limit=5000", http.StatusBadRequest},
		{"limit not a number", "/api/v1/anomalies?tenant_id=t1&limit=ten", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doRequest(t, s, tt.path)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleAnomaliesLimit(t *testing.T) {
	repo := &fakeAnomalies{}
	s := newTestServer(repo, &fakeForecasts{}, nil)

	doRequest(t, s, "/api/v1/anomalies?tenant_id=t1&limit=25")
	if repo.lastLimit != 25 {
		t.Errorf("limit passed to repo = %d, want 25", repo.lastLimit)
	}

	doRequest(t, s, "/api/v1/anomalies?tenant_id=t1")
	if repo.lastLimit != 100 {
		t.Errorf("default limit = %d, want 100", repo.lastLimit)
	}
}

func TestHandleAnomaliesQueryFailure(t *testing.T) {
	repo := &fakeAnomalies{err: fmt.Errorf("database locked")}
	s := newTestServer(repo, &fakeForecasts{}, nil)

	rec, resp := doRequest(t, s, "/api/v1/anomalies?tenant_id=t1")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if resp.Error == "" {
		t.Error("error message should be set")
	}
}

func TestHandleForecasts(t *testing.T) {
	forecast := &models.Forecast{
		TenantID:       "t1",
		Metric:         models.MetricRevenue,
		TargetDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		PredictedValue: 1500,
	}
	s := newTestServer(&fakeAnomalies{}, &fakeForecasts{forecasts: []*models.Forecast{forecast}}, nil)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing params", "/api/v1/forecasts", http.StatusBadRequest},
		{"missing metric", "/api/v1/forecasts?tenant_id=t1", http.StatusBadRequest},
		{"valid", "/api/v1/forecasts?tenant_id=t1&metric=revenue", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := doRequest(t, s, tt.path)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
