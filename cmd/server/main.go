package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"multascan/internal/api/routes"
	"multascan/internal/background"
	"multascan/internal/config"
	"multascan/internal/logging"
	"multascan/internal/sources"
	"multascan/internal/sources/adapters"
	"multascan/internal/sources/captcha"
	"multascan/internal/sources/session"
	"multascan/internal/workers"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting Multascan violation lookup service")

	// Shared HTTP configuration for all source adapters
	httpCfg := session.Config{
		UserAgent:      cfg.Scraper.UserAgent,
		AcceptLanguage: cfg.Scraper.AcceptLanguage,
		Timeout:        cfg.Scraper.RequestTimeout,
		MaxRedirects:   cfg.Scraper.MaxRedirects,
	}

	// CAPTCHA resolver shared by challenge-gated adapters
	resolver := captcha.NewTwoCaptchaResolver(cfg)

	// Register source adapters; nacional is the fallback for unknown ids
	dispatcher := sources.NewDispatcher("nacional")
	dispatcher.Register(adapters.NewNacionalAdapter(cfg, httpCfg, resolver))
	dispatcher.Register(adapters.NewCabaAdapter(cfg, httpCfg))
	dispatcher.Register(adapters.NewProvinciaAdapter(cfg, httpCfg))
	dispatcher.Register(adapters.NewSantaFeAdapter(cfg, httpCfg))
	dispatcher.Register(adapters.NewCordobaAdapter(cfg, httpCfg))

	// Initialize background task manager
	logger.Info("Initializing background task manager")
	taskManager := background.NewTaskManager(cfg)
	ctx := context.Background()
	if err := taskManager.Start(ctx); err != nil {
		logger.Fatal("Failed to start task manager", map[string]interface{}{"error": err.Error()})
	}

	// Initialize worker pool
	poolManager := workers.NewPoolManager(cfg, dispatcher)
	if err := poolManager.Initialize(); err != nil {
		logger.Fatal("Failed to start worker pool", map[string]interface{}{"error": err.Error()})
	}
	defer poolManager.Shutdown()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Setup routes
	routes.SetupRoutes(e, cfg, dispatcher, poolManager, taskManager)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Stopping background task manager...")
		if err := taskManager.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping task manager", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Stopping worker pool...")
		if err := poolManager.Shutdown(); err != nil {
			logger.Error("Error stopping worker pool", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}
}
