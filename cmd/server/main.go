package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomhub/internal/core/services"
	httphandlers "roomhub/internal/handlers/http"
	backupinfra "roomhub/internal/infrastructure/backup"
	"roomhub/internal/infrastructure/editor"
	"roomhub/internal/infrastructure/middleware"
	"roomhub/internal/infrastructure/monitoring"
	repositories "roomhub/internal/infrastructure/repositories"
	"roomhub/pkg/backup"
	"roomhub/pkg/cache"
	"roomhub/pkg/circuitbreaker"
	"roomhub/pkg/config"
	"roomhub/pkg/logger"
	"roomhub/pkg/retry"
	"roomhub/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func main() {
	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/roomhub/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "roomhub",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	// Initialize repositories
	roomRepo := repoFactory.CreateRoomRepository()
	snapshotRepo := repositories.NewGuardedSnapshotRepository(
		repoFactory.CreateSnapshotRepository(),
		circuitbreaker.New(circuitbreaker.DefaultConfig()),
		log,
	)
	activityRepo := repositories.NewBatchedActivityRepository(
		repoFactory.CreateActivityRepository(), 32, 200*time.Millisecond, log,
	)
	defer activityRepo.Close()
	slugLocker := repoFactory.CreateSlugLocker()

	// Initialize services
	snapshotCache := cache.NewCache(cfg.Publish.CacheTTL)
	defer snapshotCache.Stop()

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Publish.RetryAttempts
	retryCfg.InitialDelay = cfg.Publish.RetryDelay

	editorSync := editor.NewMemoryEditorSync()

	prometheusCollector := monitoring.NewPrometheusCollector()

	publishService := services.NewPublishService(roomRepo, snapshotRepo, snapshotCache, slugLocker, retryCfg, prometheusCollector, log)
	roomService := services.NewRoomService(roomRepo, snapshotRepo, activityRepo, prometheusCollector, log)
	lifecycleService := services.NewLifecycleService(roomRepo, publishService, activityRepo, editorSync, prometheusCollector, log)
	accessService := services.NewAccessService(roomRepo)

	// Directory archives: restore on boot, then archive on a timer
	var archiver *backupinfra.Archiver
	if cfg.Backup.Enabled {
		storage, err := backup.NewFileStorage(cfg.Backup.Dir)
		if err != nil {
			log.Fatalw("failed to open backup storage", "error", err, "dir", cfg.Backup.Dir)
		}
		archives := backup.NewService(storage, version)

		if cfg.Backup.RestoreOnStart {
			restorer := backupinfra.NewRestorer(archives, roomRepo, snapshotRepo, log)
			if err := restorer.RestoreLatest(context.Background()); err != nil {
				log.Errorw("directory restore failed", "error", err)
			}
		}

		archiver = backupinfra.NewArchiver(archives, roomRepo, snapshotRepo, backupinfra.Config{
			Interval: cfg.Backup.Interval,
			Keep:     cfg.Backup.Keep,
		}, log)
		go archiver.Start(context.Background())
	}

	// Initialize monitoring
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddRepositoryCheck(roomRepo, 30*time.Second, 2*time.Second)

	// Initialize HTTP handlers
	roomHandler := httphandlers.NewRoomHandler(roomService, lifecycleService, accessService)
	snapshotHandler := httphandlers.NewSnapshotHandler(publishService)
	shareHandler := httphandlers.NewShareHandler(roomService, prometheusCollector)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	router.Use(middleware.MetricsMiddleware(prometheusCollector))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	api := router.Group("/api")
	api.Use(middleware.IdentityMiddleware(cfg.Auth.JWTSecret))
	{
		roomHandler.SetupRoutes(api)
		snapshotHandler.SetupRoutes(api)
		shareHandler.SetupRoutes(api)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	// Readiness endpoint
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := repoFactory.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":       "not_ready",
				"timestamp":    time.Now(),
				"dependencies": "unhealthy",
				"error":        err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":       "ready",
			"timestamp":    time.Now(),
			"dependencies": "ok",
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting roomhub server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down roomhub server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	if archiver != nil {
		archiver.Stop()
		if err := archiver.RunOnce(shutdownCtx); err != nil {
			log.Errorw("final directory archive failed", "error", err)
		}
	}

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer", "error", err)
	}

	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("roomhub server stopped")
}
