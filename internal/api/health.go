package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the status of a health check.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Crawl   string                 `json:"crawl"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of an individual health check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker performs one named check.
type HealthChecker func() CheckResult

// DatabaseHealthChecker wraps a database ping.
func DatabaseHealthChecker(ping func() error) HealthChecker {
	return func() CheckResult {
		start := time.Now()
		err := ping()
		latency := time.Since(start)

		if err != nil {
			return CheckResult{
				Status:  HealthStatusUnhealthy,
				Message: "Database connection failed",
				Latency: latency.String(),
			}
		}
		return CheckResult{
			Status:  HealthStatusHealthy,
			Message: "Database connection OK",
			Latency: latency.String(),
		}
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	response := HealthResponse{
		Status:  HealthStatusHealthy,
		Service: s.config.ServiceName,
		Version: s.config.ServiceVersion,
		Uptime:  time.Since(s.startedAt).Truncate(time.Second).String(),
		Crawl:   "idle",
	}
	if s.deps.Crawls != nil && s.deps.Crawls.Running() {
		response.Crawl = "running"
	}

	if len(s.checks) > 0 {
		response.Checks = make(map[string]CheckResult, len(s.checks))
		for name, check := range s.checks {
			result := check()
			response.Checks[name] = result
			if result.Status == HealthStatusUnhealthy {
				response.Status = HealthStatusUnhealthy
			}
		}
	}

	status := http.StatusOK
	if response.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}
