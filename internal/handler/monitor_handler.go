package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/anikett35/Digital-platform-alumini-sub000/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsProvider reports socket layer statistics
type StatsProvider interface {
	GetStats() model.MonitorResponse
}

// MonitorHandler handles monitoring API endpoints
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
	Health(c *gin.Context)
}

type monitorHandler struct {
	stats  StatsProvider
	ping   func(ctx context.Context) error
	logger *zap.Logger
}

// NewMonitorHandler creates a new monitor handler. ping checks the store.
func NewMonitorHandler(stats StatsProvider, ping func(ctx context.Context) error, logger *zap.Logger) MonitorHandler {
	return &monitorHandler{
		stats:  stats,
		ping:   ping,
		logger: logger,
	}
}

// GetHubStats returns current hub statistics
// @Summary Get WebSocket hub statistics
// @Description Returns connected clients, rooms and presence counts
// @Tags Monitor
// @Produce json
// @Success 200 {object} model.MonitorResponse
// @Router /api/monitor/stats [get]
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	respond(c, http.StatusOK, h.stats.GetStats(), "Hub statistics retrieved successfully")
}

func (h *monitorHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			respond(c, http.StatusServiceUnavailable, gin.H{"mongo": "down"}, "Unhealthy")
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"mongo": "up"}, "Healthy")
}
