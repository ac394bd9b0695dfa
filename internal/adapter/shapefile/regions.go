// Package shapefile loads boundary regions from an ESRI shapefile such as the
// Census TIGER/Line state or county boundaries. Coordinates must already be
// geographic longitude/latitude; no reprojection is performed.
package shapefile

import (
	"fmt"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

// Options names the attribute columns holding the region ID and name.
type Options struct {
	IDField   string // default GEOID
	NameField string // default NAME
}

func (o Options) withDefaults() Options {
	if o.IDField == "" {
		o.IDField = "GEOID"
	}
	if o.NameField == "" {
		o.NameField = "NAME"
	}
	return o
}

// LoadFile decodes every polygon row of path, in file order. Failures are
// *domain.BoundaryLoadError.
func LoadFile(path string, opts Options) ([]domain.BoundaryRegion, error) {
	regions, err := load(path, opts.withDefaults())
	if err != nil {
		return nil, &domain.BoundaryLoadError{Source: path, Err: err}
	}
	return regions, nil
}

func load(path string, opts Options) ([]domain.BoundaryRegion, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	idNames := candidates(opts.IDField)
	nameNames := candidates(opts.NameField)
	wanted := append(append([]string{}, idNames...), nameNames...)

	var regions []domain.BoundaryRegion
	for row := 0; ; row++ {
		g, fields, more := dec.DecodeRowFields(wanted...)
		if !more {
			break
		}
		id := pick(fields, idNames)
		if id == "" {
			return nil, fmt.Errorf("row %d: missing %s attribute", row, opts.IDField)
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("row %d (%s): shapes need to be polygons, got %T", row, id, g)
		}
		name := pick(fields, nameNames)
		if name == "" {
			name = id
		}
		regions = append(regions, domain.BoundaryRegion{ID: id, Name: name, Polygon: poly})
	}
	if err := dec.Error(); err != nil {
		return nil, err
	}
	return regions, nil
}

// candidates lists the spellings a dBase column may carry.
func candidates(field string) []string {
	out := []string{field}
	for _, alt := range []string{strings.ToUpper(field), strings.ToLower(field)} {
		if alt != field && alt != out[len(out)-1] {
			out = append(out, alt)
		}
	}
	return out
}

// pick returns the first non-blank value among names. dBase values are
// space and NUL padded.
func pick(fields map[string]string, names []string) string {
	for _, n := range names {
		if v := strings.TrimRight(strings.TrimSpace(fields[n]), "\x00"); v != "" {
			return v
		}
	}
	return ""
}
