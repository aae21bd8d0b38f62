package approuters

import (
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/configuration"
	"github.com/anikett35/Digital-platform-alumini-sub000/internal/handler"

	"github.com/gin-gonic/gin"
)

// MonitorRouters sets up health and monitoring routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	router.GET("/healthz", container.MonitorHandler.Health)

	// hub statistics expose user ids, so they sit behind auth
	monitorGroup := router.Group("/api/monitor", handler.AuthMiddleware(container.Verifier, container.Logger))
	{
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}
}
