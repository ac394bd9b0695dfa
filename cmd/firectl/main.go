// Command firectl inspects FIRMS detections and boundary files offline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/firms"
	"github.com/couchcryptid/fire-hotspot-service/internal/boundaries"
	"github.com/couchcryptid/fire-hotspot-service/internal/config"
	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/geoindex"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

const fetchTimeout = 60 * time.Second

// sources are the persistent flags shared by every subcommand. Defaults come
// from the same environment variables the services read.
type sources struct {
	fires        string
	regions      string
	regionFormat string
	idProperty   string
	nameProperty string
	parseMode    string
	logLevel     string
	// defaultBox is BBOX from the environment; --bbox overrides it.
	defaultBox *domain.BoundingBox
}

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("load config: %w", err))
		os.Exit(1)
	}

	src := &sources{defaultBox: cfg.BBox}
	rootCmd := &cobra.Command{
		Use:   "firectl",
		Short: "Inspect fire detections and region boundaries",
		Long: `firectl loads a FIRMS hotspot CSV and a GeoJSON or shapefile boundary set,
then reports per-region counts, locates points, or validates ingestion.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&src.fires, "fires", cfg.FireSource, "FIRMS CSV path or URL")
	flags.StringVar(&src.regions, "regions", cfg.RegionSource, "boundary file (.geojson or .shp)")
	flags.StringVar(&src.regionFormat, "region-format", cfg.RegionFormat, "geojson or shapefile")
	flags.StringVar(&src.idProperty, "id-property", cfg.RegionIDProperty, "region id property or field")
	flags.StringVar(&src.nameProperty, "name-property", cfg.RegionNameProperty, "region name property or field")
	flags.StringVar(&src.parseMode, "parse-mode", cfg.ParseMode.String(), "lenient skips bad rows, strict fails on the first")
	flags.StringVar(&src.logLevel, "log-level", "warn", "log level for load diagnostics")

	rootCmd.AddCommand(
		newAggregateCmd(src),
		newLocateCmd(src),
		newValidateCmd(src),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what subcommands need to load data.
type env struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	loader  *firms.Loader
}

func (s *sources) env() env {
	logger := sharedobs.NewLogger(s.logLevel, "text")
	// Metrics are never scraped here; the unregistered set keeps the loaders' counters happy.
	metrics := observability.NewMetricsForTesting()
	return env{
		logger:  logger,
		metrics: metrics,
		loader:  firms.NewLoader(fetchTimeout, logger, metrics),
	}
}

func (s *sources) regionSource() boundaries.Source {
	return boundaries.Source{
		Path:         s.regions,
		Format:       s.regionFormat,
		IDProperty:   s.idProperty,
		NameProperty: s.nameProperty,
	}
}

func (s *sources) loadIndex(e env) (*geoindex.Index, error) {
	return boundaries.LoadIndex(s.regionSource(), e.logger, e.metrics)
}

func (s *sources) loadDataset(ctx context.Context, e env) (*domain.Dataset, error) {
	mode, err := domain.ParseParseMode(s.parseMode)
	if err != nil {
		return nil, err
	}
	return e.loader.LoadDataset(ctx, s.fires, mode)
}
