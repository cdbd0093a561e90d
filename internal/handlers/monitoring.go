package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/monitoring"
	"github.com/jansathi/portal/pkg/response"
)

// MonitoringHandler surfaces dependency health probes: liveness and
// readiness for orchestrators, a full merged report for administrators.
type MonitoringHandler struct {
	health *monitoring.HealthManager
}

// NewMonitoringHandler constructs a monitoring handler. Returns nil when no
// health manager is wired, in which case the routes are not registered.
func NewMonitoringHandler(health *monitoring.HealthManager) *MonitoringHandler {
	if health == nil {
		return nil
	}
	return &MonitoringHandler{health: health}
}

// GET /health/live
func (h *MonitoringHandler) Live(c *gin.Context) {
	h.respond(c, h.health.EvaluateLiveness(requestContext(c)))
}

// GET /health/ready
func (h *MonitoringHandler) Ready(c *gin.Context) {
	h.respond(c, h.health.EvaluateReadiness(requestContext(c)))
}

// GET /api/admin/system/health
func (h *MonitoringHandler) Report(c *gin.Context) {
	ctx := requestContext(c)
	report := monitoring.MergeReports(h.health.EvaluateLiveness(ctx), h.health.EvaluateReadiness(ctx))
	response.Success(c, http.StatusOK, report)
}

func (h *MonitoringHandler) respond(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
