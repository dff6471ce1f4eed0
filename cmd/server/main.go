package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/cache"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/config"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/handlers"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/health"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/middleware"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/notify"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/presence"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/ratelimit"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Configure logger
	logger, err := setupLogger(&cfg.Logger)
	if err != nil {
		fmt.Printf("Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting coordination layer server",
		zap.String("address", cfg.Server.GetAddress()),
	)

	// Build the coordination layer. An unconfigured store is not fatal:
	// every feature degrades to its fail-soft default.
	exec := executor.New(&cfg.Store, logger)
	if !exec.Configured() {
		logger.Warn("store is not configured; running degraded (set STORE_REST_URL and STORE_REST_TOKEN)")
	}

	var local *cache.Local
	if cfg.Local.Enabled {
		local = cache.NewLocal(cfg.Local.CleanupInterval)
		defer local.Stop()
	}

	cacheSvc := cache.New(exec, local, logger)
	notifyStore := notify.New(exec, logger)
	tracker := presence.New(exec, logger)
	limiter := ratelimit.New(exec, logger)
	checker := health.New(exec, logger)

	if exec.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		status := checker.Check(ctx)
		cancel()
		if status.Connected {
			logger.Info("store connection established", zap.Duration("latency", status.Latency))
		} else {
			logger.Warn("store is unreachable; running degraded")
		}
	}

	// Configure Gin
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()

	// Middlewares
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimiter(limiter, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window))

	// Initialize handlers
	handler := handlers.New(cacheSvc, notifyStore, tracker, checker, logger)

	// Health routes
	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	{
		cacheGroup := api.Group("/cache")
		{
			cacheGroup.PUT("/:key", handler.SetItem)
			cacheGroup.GET("/:key", handler.GetItem)
			cacheGroup.DELETE("/:key", handler.DeleteItem)
			cacheGroup.POST("/invalidate", handler.InvalidatePattern)
		}

		notifications := api.Group("/notifications")
		{
			notifications.POST("/:userId", handler.StoreNotification)
			notifications.GET("/:userId", handler.GetNotifications)
			notifications.POST("/:userId/:id/read", handler.MarkNotificationRead)
			notifications.GET("/:userId/unread", handler.UnreadCount)
			notifications.DELETE("/:userId", handler.ClearNotifications)
		}

		presenceGroup := api.Group("/presence")
		{
			presenceGroup.GET("", handler.GetOnlineUsers)
			presenceGroup.POST("/:userId/heartbeat", handler.Heartbeat)
			presenceGroup.GET("/:userId", handler.GetPresence)
			presenceGroup.DELETE("/:userId", handler.SignOff)
		}
	}

	// Configure HTTP server
	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// setupLogger configures the logger according to the configuration
func setupLogger(cfg *config.LoggerConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: cfg.Format,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{cfg.OutputPath},
		ErrorOutputPaths: []string{cfg.OutputPath},
	}

	return config.Build()
}
