// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"txproxy/internal/app"
	"txproxy/internal/infrastructure/http/v1/handlers"
	"txproxy/internal/infrastructure/http/v1/middleware"
	"txproxy/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Runner executes scenarios
	Runner *app.Runner

	// Database is checked by the readiness probe; nil when not configured
	Database handlers.Pinger

	// ManagerName is reported by the readiness probe
	ManagerName string

	// Logger for request logging
	Logger *logger.Logger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.ManagerName)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	scenarioHandler := handlers.NewScenarioHandler(handlers.NewBaseHandler(), cfg.Runner)
	v1 := router.Group("/api/v1")
	{
		v1.GET("/scenarios", scenarioHandler.List)
		v1.POST("/scenarios/:name/run", scenarioHandler.Run)
	}

	return router
}
