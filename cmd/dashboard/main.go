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

	"github.com/couchcryptid/unemployment-dashboard/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/unemployment-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/unemployment-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/unemployment-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/unemployment-dashboard/internal/config"
	"github.com/couchcryptid/unemployment-dashboard/internal/dashboard"
	"github.com/couchcryptid/unemployment-dashboard/internal/domain"
	"github.com/couchcryptid/unemployment-dashboard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// View events are optional; the dashboard works the same without a broker.
	var publisher dashboard.EventPublisher
	var writer *kafkaadapter.Writer
	if cfg.EventsEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		publisher = writer
		logger.Info("view events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEventsTopic)
	} else {
		logger.Info("view events disabled")
	}

	loader := csvfile.NewLoader(cfg.DataPath, geocoder, logger, metrics)
	source := dashboard.NewSource(loader)
	dash := dashboard.New(source, publisher, logger, metrics, cfg.PreviewRows)

	srv := httpadapter.NewServer(cfg.HTTPAddr, dash, source, logger, httpadapter.Options{
		RateLimitRPS: cfg.RateLimitRPS,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the dataset so the first page view does not pay for the load.
	// A failure here is not fatal: readiness stays false and the next
	// request retries.
	go func() {
		start := time.Now()
		ds, err := source.Dataset(ctx)
		if err != nil {
			logger.Error("dataset warm-up failed", "path", cfg.DataPath, "error", err)
			return
		}
		logger.Info("dataset ready", "rows", ds.Len(), "duration", time.Since(start))
	}()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
