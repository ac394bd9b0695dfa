// Command firemap serves FIRMS hotspot detections, their region attribution,
// and the hour-of-day animation over HTTP.
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

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/firms"
	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/natspub"
	"github.com/couchcryptid/fire-hotspot-service/internal/animator"
	"github.com/couchcryptid/fire-hotspot-service/internal/boundaries"
	"github.com/couchcryptid/fire-hotspot-service/internal/config"
	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

const fireSourceTimeout = 60 * time.Second

// alwaysReady reports ready once the process is serving; data is loaded
// before the listener starts.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := firms.NewLoader(fireSourceTimeout, logger, metrics)
	dataset, err := loader.LoadDataset(ctx, cfg.FireSource, cfg.ParseMode)
	if err != nil {
		logger.Error("failed to load fire detections", "source", cfg.FireSource, "error", err)
		os.Exit(1)
	}

	index, err := boundaries.LoadIndex(boundaries.SourceFromConfig(cfg), logger, metrics)
	if err != nil {
		logger.Error("failed to load boundary regions", "error", err)
		os.Exit(1)
	}

	tagged := index.Tag(dataset.Events())
	matched := domain.MatchedCount(tagged)
	metrics.EventsUnmatched.Add(float64(len(tagged) - matched))
	logger.Info("fire detections tagged", "matched", matched, "unmatched", len(tagged)-matched)

	anim := animator.New(animator.Config{
		Interval: cfg.AnimationInterval,
		Logger:   logger,
		Metrics:  metrics,
	})

	var ready sharedobs.ReadinessChecker = alwaysReady{}
	if cfg.NATSURL != "" {
		nc, err := natspub.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to connect to nats", "url", cfg.NATSURL, "error", err)
			os.Exit(1)
		}
		defer nc.Close()

		pub := natspub.NewPublisher(nc, cfg.NATSSubject, logger)
		detach := pub.Attach(anim)
		defer detach()
		ready = pub
		logger.Info("publishing animation ticks", "subject", cfg.NATSSubject)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Dataset:     dataset,
		Regions:     index,
		Animator:    anim,
		Ready:       ready,
		Metrics:     metrics,
		DefaultBox:  cfg.BBox,
		CORSOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	anim.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
