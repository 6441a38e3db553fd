package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roomboard/internal/service"
	"github.com/noah-isme/roomboard/pkg/response"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	board   *service.BoardService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, board *service.BoardService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, board: board}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Process and board counters
// @Tags Observability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

// Health reports liveness plus index consistency of the board.
func (h *MetricsHandler) Health(c *gin.Context) {
	if h.board != nil && !h.board.Status(c.Request.Context()).Consistent {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "reason": "board indices inconsistent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
