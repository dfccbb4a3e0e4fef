package approuters

import (
	"Campus/internal/configuration"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MonitorRouters sets up hub statistics and the Prometheus scrape endpoint
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorGroup := router.Group("/campus/api/monitor")
	{
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
