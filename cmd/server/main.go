package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"collab-service/internal/config"
	"collab-service/internal/database"
	"collab-service/internal/job"
	"collab-service/internal/metrics"
	"collab-service/internal/middleware"
	"collab-service/internal/realtime"
	"collab-service/internal/repository"
	"collab-service/internal/router"
	"collab-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Collab Service",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env),
		zap.String("base_path", cfg.Server.BasePath),
	)

	// Initialize database
	db, err := database.InitPostgres(cfg.Database.URL, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed")

	// Initialize Redis
	redisClient, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Redis connected successfully")

	// Initialize metrics
	m := metrics.NewWithLogger(logger)
	logger.Info("Metrics initialized")

	// Repositories
	postRepo := repository.NewPostRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Broker and identity plumbing
	broker := realtime.NewRedisBroker(redisClient)
	identity := realtime.ContextIdentityProvider{}
	validator := middleware.NewJWTValidator(cfg.Auth.SecretKey, logger)

	// Realtime components. The hub delivers toasts for every layer below, so
	// it comes first; Attach closes the loop once everything exists.
	hub := realtime.NewHub(validator, m, logger)

	// Services
	postService := service.NewPostService(postRepo, broker, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, hub, m, logger)
	tracker := realtime.NewPresenceTracker(broker, identity, presenceRepo, hub, m, cfg.Realtime.LivenessWindow, logger)
	broadcaster := realtime.NewActivityBroadcaster(broker, identity, hub, m, cfg.Realtime.ActivityLogSize, logger)
	listener := realtime.NewChangeListener(broker, broadcaster, hub, notificationService, postService, m, cfg.Realtime.RefreshDebounce, logger)
	hub.Attach(tracker, broadcaster, listener)

	reconciler := realtime.NewPostReconciler(postService, broadcaster, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker.Start(ctx)
	broadcaster.Start(ctx)
	listener.Start(ctx)
	logger.Info("Realtime subscribers started")

	// Maintenance jobs
	scheduler := job.NewScheduler(logger)
	cleanupJob := job.NewCleanupJob(notificationService, cfg.App.NotificationRetentionDays, logger)
	if err := scheduler.Register(cfg.App.CleanupSchedule, cleanupJob); err != nil {
		logger.Fatal("Failed to register cleanup job", zap.Error(err))
	}
	sweepJob := job.NewPresenceSweepJob(presenceRepo, cfg.Realtime.LivenessWindow, logger)
	if err := scheduler.Register("@every 1m", sweepJob); err != nil {
		logger.Fatal("Failed to register presence sweep job", zap.Error(err))
	}
	scheduler.Start()

	// Router
	r := router.Setup(cfg, db, redisClient, logger, router.Dependencies{
		Hub:           hub,
		Tracker:       tracker,
		Broadcaster:   broadcaster,
		Listener:      listener,
		Reconciler:    reconciler,
		Posts:         postService,
		Notifications: notificationService,
		PresenceRepo:  presenceRepo,
		Validator:     validator,
		Metrics:       m,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		logger.Info("Collab Service started successfully",
			zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	scheduler.Stop()
	listener.Close()
	broadcaster.Close()
	tracker.Close()

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapCfg.Build()
}
