// Package geojson loads boundary regions from a GeoJSON FeatureCollection of
// Polygon / MultiPolygon features (us-atlas or world-atlas converted to GeoJSON).
package geojson

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/biter777/countries"
	"github.com/ctessum/geom"
	gj "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

// Options selects which feature members identify and name a region.
type Options struct {
	// IDProperty reads the region ID from this property instead of the feature id.
	IDProperty string
	// NameProperty holds the display name; defaults to "name".
	NameProperty string
}

// LoadFile reads and decodes a region file. Failures are *domain.BoundaryLoadError.
func LoadFile(path string, opts Options) ([]domain.BoundaryRegion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.BoundaryLoadError{Source: path, Err: err}
	}
	regions, err := Decode(data, opts)
	if err != nil {
		return nil, &domain.BoundaryLoadError{Source: path, Err: err}
	}
	return regions, nil
}

// Decode converts every feature into a region, in file order.
func Decode(data []byte, opts Options) ([]domain.BoundaryRegion, error) {
	if opts.NameProperty == "" {
		opts.NameProperty = "name"
	}

	fc, err := gj.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	regions := make([]domain.BoundaryRegion, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := featureID(f, opts.IDProperty)
		if id == "" {
			// world-atlas leaves a few disputed territories without an id.
			id = stringify(f.Properties[opts.NameProperty])
		}
		if id == "" {
			return nil, fmt.Errorf("feature %d: missing id and name", i)
		}
		poly, err := toPolygonal(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d (%s): %w", i, id, err)
		}
		regions = append(regions, domain.BoundaryRegion{
			ID:      id,
			Name:    regionName(f, opts.NameProperty, id),
			Polygon: poly,
		})
	}
	return regions, nil
}

func featureID(f *gj.Feature, prop string) string {
	if prop != "" {
		return stringify(f.Properties[prop])
	}
	return stringify(f.ID)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

var (
	isoNumeric = regexp.MustCompile(`^\d{3}$`)
	isoAlpha3  = regexp.MustCompile(`^[A-Z]{3}$`)
)

// regionName prefers the name property, then an ISO 3166 lookup for
// three-digit or alpha-3 country ids, then the id itself. Two-digit ids are
// left alone since US state FIPS codes would collide with country numbers.
func regionName(f *gj.Feature, prop, id string) string {
	if name := stringify(f.Properties[prop]); name != "" {
		return name
	}
	switch {
	case isoNumeric.MatchString(id):
		n, _ := strconv.Atoi(id)
		if c := countries.ByNumeric(n); c.IsValid() {
			return c.String()
		}
	case isoAlpha3.MatchString(id):
		if c := countries.ByName(id); c.IsValid() {
			return c.String()
		}
	}
	return id
}

func toPolygonal(g *gj.Geometry) (geom.Polygonal, error) {
	switch {
	case g == nil:
		return nil, fmt.Errorf("no geometry")
	case g.IsPolygon():
		return toPolygon(g.Polygon), nil
	case g.IsMultiPolygon():
		mp := make(geom.MultiPolygon, 0, len(g.MultiPolygon))
		for _, p := range g.MultiPolygon {
			mp = append(mp, toPolygon(p))
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("unsupported geometry %s", g.Type)
	}
}

// toPolygon maps [lon, lat] rings to X=lon, Y=lat paths.
func toPolygon(rings [][][]float64) geom.Polygon {
	poly := make(geom.Polygon, 0, len(rings))
	for _, ring := range rings {
		path := make(geom.Path, 0, len(ring))
		for _, c := range ring {
			if len(c) < 2 {
				continue
			}
			path = append(path, geom.Point{X: c[0], Y: c[1]})
		}
		poly = append(poly, path)
	}
	return poly
}
