package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/thesethtruth/atlite-profiles-api/internal/adapter/http"
	kafkaadapter "github.com/thesethtruth/atlite-profiles-api/internal/adapter/kafka"
	"github.com/thesethtruth/atlite-profiles-api/internal/atlite"
	"github.com/thesethtruth/atlite-profiles-api/internal/config"
	"github.com/thesethtruth/atlite-profiles-api/internal/observability"
	"github.com/thesethtruth/atlite-profiles-api/internal/profile"
	"github.com/thesethtruth/atlite-profiles-api/internal/technology"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	bridge := atlite.NewBridge(cfg.BridgeCommand, cfg.BridgeTimeout, logger, metrics)

	// Catalog listings optionally go through a file-backed cache
	// (feature-flagged via CATALOG_CACHE_PATH).
	var library atlite.Library = bridge
	if cfg.CatalogCachePath != "" {
		library = atlite.NewCachedLibrary(bridge, cfg.CatalogCachePath, cfg.CatalogCacheTTL, clockwork.NewRealClock())
		logger.Info("catalog cache enabled", "path", cfg.CatalogCachePath, "ttl", cfg.CatalogCacheTTL)
	} else {
		logger.Info("catalog cache disabled")
	}

	resolver := technology.NewResolver(cfg.WindConfigDir, cfg.SolarConfigDir, library, logger, metrics)
	catalog := technology.NewCatalog(cfg.WindConfigDir, cfg.SolarConfigDir, library, logger)
	generator := profile.NewGenerator(bridge, logger, metrics)

	var events httpadapter.EventPublisher
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		events = publisher
		logger.Info("event publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEventsTopic)
	} else {
		logger.Info("event publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Options{
		Catalog:          catalog,
		Resolver:         resolver,
		Inspector:        bridge,
		Generator:        generator,
		Storage:          profile.DefaultStorageConfig(cfg.OutputDir),
		CutoutConfigFile: cfg.CutoutConfigFile,
		Events:           events,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("event publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
