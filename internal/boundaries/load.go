// Package boundaries loads region polygons from the configured source and
// builds the point-in-polygon index over them.
package boundaries

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/geojson"
	"github.com/couchcryptid/fire-hotspot-service/internal/adapter/shapefile"
	"github.com/couchcryptid/fire-hotspot-service/internal/config"
	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/geoindex"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

// Source describes where region geometry comes from.
type Source struct {
	Path         string
	Format       string // config.RegionFormatGeoJSON or config.RegionFormatShapefile
	IDProperty   string
	NameProperty string
}

// SourceFromConfig extracts the region source settings.
func SourceFromConfig(cfg *config.Config) Source {
	return Source{
		Path:         cfg.RegionSource,
		Format:       cfg.RegionFormat,
		IDProperty:   cfg.RegionIDProperty,
		NameProperty: cfg.RegionNameProperty,
	}
}

// Load decodes the regions of src in file order.
func Load(src Source) ([]domain.BoundaryRegion, error) {
	switch src.Format {
	case config.RegionFormatShapefile:
		return shapefile.LoadFile(src.Path, shapefile.Options{IDField: src.IDProperty, NameField: src.NameProperty})
	case config.RegionFormatGeoJSON, "":
		return geojson.LoadFile(src.Path, geojson.Options{IDProperty: src.IDProperty, NameProperty: src.NameProperty})
	default:
		return nil, &domain.BoundaryLoadError{Source: src.Path, Err: fmt.Errorf("unknown format %q", src.Format)}
	}
}

// LoadIndex loads src and indexes it. Build failures are reported as
// *domain.BoundaryLoadError so callers treat every boundary failure alike.
func LoadIndex(src Source, logger *slog.Logger, metrics *observability.Metrics) (*geoindex.Index, error) {
	regions, err := Load(src)
	if err != nil {
		return nil, err
	}
	ix, err := geoindex.Build(regions)
	if err != nil {
		return nil, &domain.BoundaryLoadError{Source: src.Path, Err: err}
	}
	metrics.RegionsIndexed.Set(float64(ix.Len()))
	logger.Info("boundary regions indexed", "source", src.Path, "format", src.Format, "regions", ix.Len())
	return ix, nil
}
