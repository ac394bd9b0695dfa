// Package geoindex answers which boundary region (state, country) contains a
// coordinate. Regions are tested with point-in-polygon containment in input
// order; the first containing region wins.
package geoindex

import (
	"errors"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

// searchPad widens the point query box so candidates are found whether or not
// the tree treats touching boxes as intersecting.
const searchPad = 1e-9

// RegionRef identifies the region that contains a point.
type RegionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Index is an immutable set of boundary regions. It is safe for concurrent use.
type Index struct {
	entries []*entry
	tree    *rtree.Rtree
}

// entry is stored in the R-tree; the embedded polygon supplies geom.Geom.
type entry struct {
	geom.Polygonal
	order int
	ref   RegionRef
}

// Build indexes regions. Empty input yields an index whose lookups never
// match. A region without an ID or polygon is rejected.
func Build(regions []domain.BoundaryRegion) (*Index, error) {
	ix := &Index{
		entries: make([]*entry, 0, len(regions)),
		tree:    rtree.NewTree(25, 50),
	}
	for i, r := range regions {
		if r.ID == "" {
			return nil, fmt.Errorf("region %d: empty id", i)
		}
		if r.Polygon == nil {
			return nil, fmt.Errorf("region %d (%s): %w", i, r.ID, errNoPolygon)
		}
		e := &entry{
			Polygonal: r.Polygon,
			order:     i,
			ref:       RegionRef{ID: r.ID, Name: r.Name},
		}
		ix.entries = append(ix.entries, e)
		ix.tree.Insert(e)
	}
	return ix, nil
}

var errNoPolygon = errors.New("no polygon")

// Len returns the number of indexed regions.
func (ix *Index) Len() int { return len(ix.entries) }

// Regions returns the indexed regions in input order.
func (ix *Index) Regions() []RegionRef {
	refs := make([]RegionRef, len(ix.entries))
	for i, e := range ix.entries {
		refs[i] = e.ref
	}
	return refs
}

// Locate returns the first region, in input order, whose polygon contains p.
// Points on a region edge count as contained.
func (ix *Index) Locate(p domain.Point) (RegionRef, bool) {
	pt := geom.Point{X: p.Lon, Y: p.Lat}
	query := &geom.Bounds{
		Min: geom.Point{X: pt.X - searchPad, Y: pt.Y - searchPad},
		Max: geom.Point{X: pt.X + searchPad, Y: pt.Y + searchPad},
	}

	var best *entry
	for _, s := range ix.tree.SearchIntersect(query) {
		e := s.(*entry)
		if best != nil && e.order > best.order {
			continue
		}
		if contains(e.Polygonal, pt) {
			best = e
		}
	}
	if best == nil {
		return RegionRef{}, false
	}
	return best.ref, true
}

// Tag attributes each event to its enclosing region, preserving order.
func (ix *Index) Tag(events []domain.FireEvent) []domain.TaggedFireEvent {
	out := make([]domain.TaggedFireEvent, len(events))
	for i, e := range events {
		out[i] = ix.TagOne(e)
	}
	return out
}

// TagOne attributes a single event.
func (ix *Index) TagOne(e domain.FireEvent) domain.TaggedFireEvent {
	t := domain.TaggedFireEvent{FireEvent: e}
	if ref, ok := ix.Locate(e.Point()); ok {
		t.RegionID = ref.ID
		t.RegionName = ref.Name
	}
	return t
}

func contains(poly geom.Polygonal, pt geom.Point) bool {
	return pt.Within(poly) != geom.Outside
}
