package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/matchpoint-hq/matchpoint/app/db"
	obsmetrics "github.com/matchpoint-hq/matchpoint/app/observability/metrics"
	"github.com/matchpoint-hq/matchpoint/app/tracer"
	"github.com/matchpoint-hq/matchpoint/config"
	"github.com/matchpoint-hq/matchpoint/internal/container"
	"github.com/matchpoint-hq/matchpoint/internal/router"
)

func setupLogger() *slog.Logger {
	env := os.Getenv("APP_ENV")
	var handler slog.Handler
	switch env {
	case "production", "staging":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		})
	}
	logger := slog.New(handler).With(slog.String("service", "matchpoint-api"))
	slog.SetDefault(logger)
	return logger
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on environment")
	}

	logger := setupLogger()

	cfg, err := config.InitConfig()
	if err != nil {
		logger.Error("Configuration failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Database configuration failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(dbCfg.ConnectionURL, logger); err != nil {
		logger.Error("Migrations failed", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(dbCfg.ConnectionURL, logger)
	if err != nil {
		logger.Error("Database init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database never became ready")
		os.Exit(1)
	}

	metricsHandler, err := tracer.InitTracingAndMetrics("matchpoint-api")
	if err != nil {
		logger.Error("Telemetry init failed", slog.Any("error", err))
		os.Exit(1)
	}
	obsmetrics.InitAppMetrics()

	// Prometheus scrape endpoint on its own port.
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.Handlers.Prometheus.Port,
		Handler: metricsHandler,
	}
	go func() {
		logger.Info("Metrics server listening", slog.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.Any("error", err))
		}
	}()

	c := container.NewContainer(&cfg, logger, pool)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router.New(c),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API server listening",
			slog.String("addr", srv.Addr),
			slog.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", slog.Any("error", err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.Any("error", err))
	}
	logger.Info("Shutdown complete")
}
