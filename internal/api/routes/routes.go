package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"multascan/internal/api/handlers"
	"multascan/internal/api/middleware"
	"multascan/internal/background"
	"multascan/internal/config"
	"multascan/internal/sources"
	"multascan/internal/workers"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, dispatcher *sources.Dispatcher, poolManager *workers.PoolManager, taskManager background.TaskManager) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	// Lookups wait on portals and CAPTCHA providers; give them a longer budget
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, 2*time.Minute))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(poolManager))
		health.GET("/live", handlers.LivenessHandler)
		health.GET("/workers", handlers.WorkerHealthHandler(poolManager))
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(poolManager))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.POST("/lookup", handlers.LookupHandler(cfg, poolManager))
		v1.POST("/lookup/async", handlers.AsyncLookupHandler(cfg, poolManager, taskManager))
		v1.GET("/tasks/:processId", handlers.TaskStatusHandler(taskManager))

		v1.GET("/sources", handlers.SourcesHandler(dispatcher))
		v1.GET("/sources/:id/stats", handlers.SourceStatsHandler(poolManager))

		workerGroup := v1.Group("/workers")
		{
			workerGroup.GET("/stats", handlers.WorkerStatsHandler(poolManager))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Multascan Violation Lookup",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
