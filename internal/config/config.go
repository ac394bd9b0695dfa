package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

// Region source formats.
const (
	RegionFormatGeoJSON   = "geojson"
	RegionFormatShapefile = "shapefile"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Data sources, loaded once at startup.
	FireSource         string
	RegionSource       string
	RegionFormat       string
	RegionIDProperty   string
	RegionNameProperty string
	ParseMode          domain.ParseMode
	BBox               *domain.BoundingBox

	AnimationInterval  time.Duration
	CORSAllowedOrigins []string

	// Optional tick fan-out.
	NATSURL     string
	NATSSubject string

	// Streaming tagger.
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	animationInterval, err := parsePositiveDuration("ANIMATION_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	parseMode, err := domain.ParseParseMode(os.Getenv("PARSE_MODE"))
	if err != nil {
		return nil, fmt.Errorf("invalid PARSE_MODE: %w", err)
	}

	bbox, err := parseBBox()
	if err != nil {
		return nil, err
	}

	regionSource := sharedcfg.EnvOrDefault("REGION_SOURCE", "data/us-states.geojson")
	regionFormat, err := parseRegionFormat(regionSource)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FireSource:         sharedcfg.EnvOrDefault("FIRE_SOURCE", "data/fires.csv"),
		RegionSource:       regionSource,
		RegionFormat:       regionFormat,
		RegionIDProperty:   os.Getenv("REGION_ID_PROPERTY"),
		RegionNameProperty: sharedcfg.EnvOrDefault("REGION_NAME_PROPERTY", "name"),
		ParseMode:          parseMode,
		BBox:               bbox,

		AnimationInterval:  animationInterval,
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		NATSURL:     os.Getenv("NATS_URL"),
		NATSSubject: sharedcfg.EnvOrDefault("NATS_SUBJECT", "firemap.animation.hour"),

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-fire-detections"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "tagged-fire-detections"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "fire-tagger"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.FireSource == "" {
		return nil, errors.New("FIRE_SOURCE is required")
	}
	if cfg.RegionSource == "" {
		return nil, errors.New("REGION_SOURCE is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.NATSSubject == "" {
		return nil, errors.New("NATS_SUBJECT is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBBox() (*domain.BoundingBox, error) {
	s := os.Getenv("BBOX")
	if s == "" {
		return nil, nil
	}
	box, err := domain.ParseBoundingBox(s)
	if err != nil {
		return nil, fmt.Errorf("invalid BBOX: %w", err)
	}
	return &box, nil
}

// parseRegionFormat honors REGION_FORMAT, else infers from the source extension.
func parseRegionFormat(source string) (string, error) {
	switch f := strings.ToLower(os.Getenv("REGION_FORMAT")); f {
	case RegionFormatGeoJSON, RegionFormatShapefile:
		return f, nil
	case "":
		if strings.EqualFold(filepath.Ext(source), ".shp") {
			return RegionFormatShapefile, nil
		}
		return RegionFormatGeoJSON, nil
	default:
		return "", fmt.Errorf("invalid REGION_FORMAT %q", f)
	}
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
