// Package httpserver provides HTTP server infrastructure components.
package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lllypuk/healthd/internal/health"
)

// Health endpoint paths.
const (
	PathHealth    = "/health"
	PathAPIHealth = "/api/health"
	PathLiveness  = "/up"
)

// LivenessResponse is the body of the liveness endpoint.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReportEvaluator produces a health report and its HTTP status code.
type ReportEvaluator interface {
	Evaluate(ctx context.Context) (health.Report, int)
}

// ReportObserver is notified about every served report.
type ReportObserver interface {
	ObserveReport(status string)
}

// HealthEndpoints manages health check endpoint registration.
type HealthEndpoints struct {
	evaluator ReportEvaluator
	observer  ReportObserver
}

// NewHealthEndpoints creates a new HealthEndpoints instance. observer may be nil.
func NewHealthEndpoints(evaluator ReportEvaluator, observer ReportObserver) *HealthEndpoints {
	return &HealthEndpoints{
		evaluator: evaluator,
		observer:  observer,
	}
}

// Register registers all health endpoints on the Echo instance.
// Endpoints registered:
//   - GET /health, GET /api/health - dependency report (200 ok, 503 degraded)
//   - GET /up - liveness probe, never touches dependencies
func (h *HealthEndpoints) Register(e *echo.Echo) {
	e.GET(PathHealth, h.handleReport)
	e.GET(PathAPIHealth, h.handleReport)
	e.GET(PathLiveness, h.handleLiveness)
}

// handleReport runs both probes and returns the aggregated report.
func (h *HealthEndpoints) handleReport(c echo.Context) error {
	if h.evaluator == nil {
		return RespondErrorWithCode(c, http.StatusServiceUnavailable, CodeNotConfigured, "Health checker is not configured")
	}

	report, code := h.evaluator.Evaluate(c.Request().Context())
	if h.observer != nil {
		h.observer.ObserveReport(string(report.Status))
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(code, report)
}

// handleLiveness reports that the process is serving requests.
func (h *HealthEndpoints) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, LivenessResponse{Status: string(health.StatusOK)})
}
