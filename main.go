package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/handlers"
	"github.com/conky-dev/numba-blasta-sub001/internal/dispatch"
	"github.com/conky-dev/numba-blasta-sub001/internal/ratelimit"
	"github.com/conky-dev/numba-blasta-sub001/internal/repository"
	"github.com/conky-dev/numba-blasta-sub001/internal/scheduler"
	"github.com/conky-dev/numba-blasta-sub001/internal/service"
	"github.com/conky-dev/numba-blasta-sub001/pkg/database"
	"github.com/conky-dev/numba-blasta-sub001/pkg/gateway"
	"github.com/conky-dev/numba-blasta-sub001/pkg/logger"
	"github.com/conky-dev/numba-blasta-sub001/pkg/redis"
	"github.com/conky-dev/numba-blasta-sub001/pkg/validator"
	"github.com/conky-dev/numba-blasta-sub001/routes"

	_ "github.com/conky-dev/numba-blasta-sub001/docs" // swagger docs
)

// @title SMS Dispatch Service API
// @version 1.0
// @description Outbound SMS dispatch pipeline: segment-aware billing, durable queue, rate-limited workers and campaign fan-out

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err == nil {
		logger.Debugf("Loaded environment from .env")
	}

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Gateway.AuthKey == "" {
		logger.Fatalf("GATEWAY_AUTH_KEY is required but not set")
	}
	if cfg.Auth.APIKey == "" {
		logger.Fatalf("API_KEY is required but not set")
	}
	if cfg.Auth.SchedulerAPIKey == "" {
		logger.Fatalf("SCHEDULER_API_KEY is required but not set")
	}

	logger.Infof("Starting SMS dispatch service...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init redis
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis not available, falling back to in-process rate limiting: %v", err)
		redisClient = nil
	}

	// Initialize gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway)
	logger.Infof("Gateway configured: %s", gatewayClient.GetURL())

	// Initialize repositories
	messageRepo := repository.NewMessageRepository(db)
	jobRepo := repository.NewJobRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	contactRepo := repository.NewContactRepository(db)
	senderRepo := repository.NewSenderRepository(db)
	creditRepo := repository.NewCreditRepository(db)

	// Rate limiter: shared counters via valkey when available, otherwise a
	// per-process window arena.
	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	// Initialize services
	var deliveryCache service.DeliveryCache
	if redisClient != nil {
		deliveryCache = redisClient
	}
	messageService := service.NewMessageService(messageRepo, jobRepo, deliveryCache, cfg.Dispatch)
	creditService := service.NewCreditService(creditRepo)
	campaignService := service.NewCampaignService(campaignRepo, contactRepo, jobRepo, jobRepo, cfg.Dispatch)

	// Dispatch worker pool
	pool := dispatch.NewPool(
		jobRepo,
		senderRepo,
		creditService,
		messageRepo,
		gatewayClient,
		campaignRepo,
		limiter,
		cfg.Dispatch,
	)
	pool.Start()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler
	sched := scheduler.NewScheduler(campaignService, jobRepo, time.Minute, cfg.Dispatch.Retention)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	messageHandler := handlers.NewMessageHandler(messageService)
	campaignHandler := handlers.NewCampaignHandler(campaignService)
	creditHandler := handlers.NewCreditHandler(creditService)
	senderHandler := handlers.NewSenderHandler(senderRepo, limiter)
	deliveryHandler := handlers.NewDeliveryHandler(messageService)
	schedulerHandler := handlers.NewSchedulerHandler(sched, ctx)

	// Auto-start scheduler
	if os.Getenv("AUTO_START_SCHEDULER") != "false" {
		logger.Infof("Auto-starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start scheduler: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"x-api-key",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(
		e,
		healthHandler,
		messageHandler,
		campaignHandler,
		creditHandler,
		senderHandler,
		deliveryHandler,
		schedulerHandler,
		cfg,
	)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop scheduler first (with timeout)
	if sched.IsRunning() {
		logger.Infof("Stopping scheduler...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- sched.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping scheduler: %v", err)
			} else {
				logger.Infof("Scheduler stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Scheduler stop timeout, forcing shutdown")
		}
	}

	// Stop workers; in-flight jobs finish, queued ones wait for the next boot.
	logger.Infof("Stopping dispatch pool...")
	pool.Stop()

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		logger.Infof("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing Redis: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
