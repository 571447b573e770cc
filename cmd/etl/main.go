package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/valpamp/sfide-fire-map/internal/adapter/http"
	kafkaadapter "github.com/valpamp/sfide-fire-map/internal/adapter/kafka"
	"github.com/valpamp/sfide-fire-map/internal/adapter/mapbox"
	"github.com/valpamp/sfide-fire-map/internal/adapter/sfide"
	"github.com/valpamp/sfide-fire-map/internal/aggregate"
	"github.com/valpamp/sfide-fire-map/internal/config"
	"github.com/valpamp/sfide-fire-map/internal/domain"
	"github.com/valpamp/sfide-fire-map/internal/observability"
	"github.com/valpamp/sfide-fire-map/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reverse geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var publisher pipeline.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	var notify <-chan struct{}
	var watcher *sfide.Watcher
	if cfg.WatchEnabled {
		watcher, err = sfide.NewWatcher(cfg.SourceDir, cfg.WatchDebounce, logger)
		if err != nil {
			// Interval scanning still covers the source tree.
			logger.Warn("directory watching unavailable, falling back to interval scans", "error", err)
		} else {
			watcher.Start(ctx)
			notify = watcher.Notify()
			logger.Info("watching source tree", "dir", cfg.SourceDir, "debounce", cfg.WatchDebounce)
		}
	}

	scanner := sfide.NewScanner(cfg.SourceDir, logger)
	state := sfide.NewStateStore(cfg.StateFile, logger)
	store := aggregate.NewStore(cfg.OutputDir, cfg.RollingWindow, logger)
	transformer := pipeline.NewTransformer(geocoder, logger)

	p := pipeline.New(scanner, transformer, store, publisher, state, logger, metrics, cfg.ScanInterval, notify)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start aggregation pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Error("watcher close error", "error", err)
		}
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
