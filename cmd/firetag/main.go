// Command firetag consumes raw FIRMS detections from Kafka, attributes each to
// its boundary region, optionally reverse-geocodes it, and produces tagged
// events to the sink topic.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	kafkaadapter "github.com/couchcryptid/fire-hotspot-service/internal/adapter/kafka"
	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/mapbox"
	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/opsserver"
	"github.com/couchcryptid/fire-hotspot-service/internal/boundaries"
	"github.com/couchcryptid/fire-hotspot-service/internal/config"
	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
	"github.com/couchcryptid/fire-hotspot-service/internal/pipeline"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	index, err := boundaries.LoadIndex(boundaries.SourceFromConfig(cfg), logger, metrics)
	if err != nil {
		logger.Error("failed to load boundary regions", "error", err)
		os.Exit(1)
	}

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocode cache", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	tagger := pipeline.NewTransformer(index, geocoder, logger, metrics)

	p := pipeline.New(reader, tagger, writer, logger, metrics, cfg.BatchSize)

	srv := opsserver.NewServer(cfg.HTTPAddr, p, opsserver.Status{
		SourceTopic:      cfg.KafkaSourceTopic,
		SinkTopic:        cfg.KafkaSinkTopic,
		GroupID:          cfg.KafkaGroupID,
		BatchSize:        cfg.BatchSize,
		RegionsIndexed:   index.Len(),
		GeocodingEnabled: geocoder != nil,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

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
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
