package monitoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name        string       `json:"name"`
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked time.Time    `json:"last_checked"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Service   string        `json:"service"`
	Checks    []HealthCheck `json:"checks"`
}

// HealthChecker runs component health checks for the health endpoint
type HealthChecker struct {
	service string
	db      *sql.DB
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(service string, db *sql.DB) *HealthChecker {
	return &HealthChecker{
		service: service,
		db:      db,
	}
}

// Report runs all health checks and aggregates the result
func (h *HealthChecker) Report(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Service:   h.service,
	}

	dbCheck := HealthCheck{
		Name:        "database",
		Status:      HealthStatusHealthy,
		LastChecked: time.Now().UTC(),
	}

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := h.db.PingContext(pingCtx); err != nil {
			dbCheck.Status = HealthStatusUnhealthy
			dbCheck.Message = err.Error()
			report.Status = HealthStatusUnhealthy
		}
	}

	report.Checks = append(report.Checks, dbCheck)
	return report
}

// Handler returns an HTTP handler serving the health report
func (h *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := h.Report(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
