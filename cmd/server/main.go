package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/patient-feedback-server/internal/api"
	"github.com/patient-feedback-server/internal/cache"
	"github.com/patient-feedback-server/internal/charts"
	"github.com/patient-feedback-server/internal/config"
	"github.com/patient-feedback-server/internal/service"
	"github.com/patient-feedback-server/internal/session"
	"github.com/patient-feedback-server/internal/store"
)

func main() {
	// Environment variables from a local .env file, if present
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using system environment variables")
	}

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store: the single source of truth for feedback records
	recordStore, err := store.NewMongoStore(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to record store: %v", err)
	}
	defer recordStore.Close(context.Background())

	if err := recordStore.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("Failed to ensure store indexes: %v", err)
	}

	// Cache mirror, best-effort
	recordCache, err := cache.NewRedisCache(cfg.Redis, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to cache: %v", err)
	}
	defer recordCache.Close()

	// Session store backing the submission guard's fast path
	sessions, err := session.NewRedisStore(cfg.Redis, cfg.Session.TTL)
	if err != nil {
		logger.Fatalf("Failed to connect to session store: %v", err)
	}
	defer sessions.Close()

	server := api.NewServer(cfg, api.Deps{
		Intake:    service.NewIntakeService(recordStore, recordCache, sessions, logger),
		Aggregate: service.NewAggregationService(recordStore, cfg.Charts.SnapshotTTL, logger),
		Admin:     service.NewAdminService(recordStore, logger),
		Renderer:  charts.NewFileRenderer(cfg.Charts.OutputDir),
		Cookies:   session.NewCookies(cfg.Session),
	}, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting patient feedback server")

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
