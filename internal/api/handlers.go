package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/good-yellow-bee/salescope/internal/scheduler"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth is a simple "is the process running" probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(w, HealthResponse{Status: "ok"})
}

// handleReady pings each backing store; any failure makes the service
// not-ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.QueryTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.checkers))
	healthy := true
	for name, checker := range s.checkers {
		if err := checker.Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		JSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Checks: checks})
		return
	}
	OK(w, HealthResponse{Status: "ready", Checks: checks})
}

// StatusResponse reports background job state for operators.
type StatusResponse struct {
	Jobs       []scheduler.Status `json:"jobs"`
	QueueDepth int                `json:"queue_depth"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	OK(w, StatusResponse{
		Jobs:       s.status.Statuses(),
		QueueDepth: s.status.QueueDepth(),
	})
}

// handleAnomalies lists recent anomalies for one tenant, most recent first.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		JSONError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 1000 {
			JSONError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.QueryTimeout)
	defer cancel()

	anomalies, err := s.anomalies.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		s.logger.Printf("api: list anomalies for tenant %s: %v", tenantID, err)
		JSONError(w, http.StatusInternalServerError, "query failed")
		return
	}
	OK(w, anomalies)
}

// handleForecasts lists forecasts for one tenant and metric, ascending by
// target date.
func (s *Server) handleForecasts(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	metric := r.URL.Query().Get("metric")
	if tenantID == "" || metric == "" {
		JSONError(w, http.StatusBadRequest, "tenant_id and metric are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.QueryTimeout)
	defer cancel()

	forecasts, err := s.forecasts.ListByTenantMetric(ctx, tenantID, metric)
	if err != nil {
		s.logger.Printf("api: list forecasts for tenant %s metric %s: %v", tenantID, metric, err)
		JSONError(w, http.StatusInternalServerError, "query failed")
		return
	}
	OK(w, forecasts)
}
