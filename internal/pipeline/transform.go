package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

// RegionTagger attributes a single detection to its enclosing region.
type RegionTagger interface {
	TagOne(e domain.FireEvent) domain.TaggedFireEvent
}

// FireTagger implements Transformer: it parses a raw FIRMS detection, tags it
// with its region, optionally reverse-geocodes it, and serializes the result.
type FireTagger struct {
	regions  RegionTagger
	geocoder domain.Geocoder
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a FireTagger. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(regions RegionTagger, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *FireTagger {
	return &FireTagger{
		regions:  regions,
		geocoder: geocoder,
		metrics:  metrics,
		logger:   logger,
	}
}

// Transform is safe for concurrent use as long as the region tagger is.
func (t *FireTagger) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	event, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	tagged := t.regions.TagOne(event)
	if !tagged.Matched() {
		t.metrics.EventsUnmatched.Inc()
	}
	tagged = domain.EnrichWithGeocoding(ctx, tagged, t.geocoder, t.logger)

	return domain.SerializeTaggedEvent(tagged)
}
