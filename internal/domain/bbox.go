package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseBoundingBox parses "minLat,maxLat,minLon,maxLon". The literal "conus"
// selects ContinentalUS.
func ParseBoundingBox(s string) (BoundingBox, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "conus") {
		return ContinentalUS, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bounding box %q: want minLat,maxLat,minLon,maxLon", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return BoundingBox{}, fmt.Errorf("bounding box %q: bad number %q", s, p)
		}
		v[i] = f
	}
	box := BoundingBox{MinLat: v[0], MaxLat: v[1], MinLon: v[2], MaxLon: v[3]}
	if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
		return BoundingBox{}, fmt.Errorf("bounding box %q: min exceeds max", s)
	}
	return box, nil
}
