package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pricespy/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.GET("/units", handler.ListUnits)
		v1.POST("/extractions/process", handler.ProcessExtraction)
		v1.POST("/compare", handler.ComparePrices)

		v1.GET("/logs", handler.ListLogs)
		v1.GET("/logs/stats", handler.LogStats)

		items := v1.Group("/items/:id")
		{
			items.GET("/history", handler.GetHistory)
			items.GET("/latest", handler.GetLatest)
		}
	}

	return router
}
