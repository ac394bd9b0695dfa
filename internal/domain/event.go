package domain

import (
	"context"
	"time"

	"github.com/ctessum/geom"
)

// RawRow is one tokenized FIRMS CSV row keyed by header name, e.g.
// {"latitude": "34.12", "acq_time": "130", ...}.
type RawRow map[string]string

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FireEvent is a single satellite hotspot detection after parsing.
type FireEvent struct {
	ID         string    `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	FRP        float64   `json:"frp"`        // fire radiative power, MW
	Brightness float64   `json:"brightness"` // I-4 channel brightness temperature, K
	AcqTime    int       `json:"acq_time"`   // HHMM UTC, 0..2359
	AcqDate    time.Time `json:"acq_date,omitzero"`

	BrightnessT5 float64 `json:"brightness_t5,omitempty"`
	Satellite    string  `json:"satellite,omitempty"`
	Confidence   string  `json:"confidence,omitempty"` // VIIRS: "l", "n", "h"
	DayNight     string  `json:"daynight,omitempty"`
}

// Hour returns the UTC hour of day the detection was acquired.
func (e FireEvent) Hour() int {
	return e.AcqTime / 100
}

// Point returns the detection location.
func (e FireEvent) Point() Point {
	return Point{Lat: e.Latitude, Lon: e.Longitude}
}

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// ContinentalUS is the lower-48 box used by the US state map.
var ContinentalUS = BoundingBox{MinLat: 26, MaxLat: 49, MinLon: -125, MaxLon: -66}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BoundaryRegion is a state or country polygon used for spatial tagging.
// Coordinates are X=longitude, Y=latitude.
type BoundaryRegion struct {
	ID      string
	Name    string
	Polygon geom.Polygonal
}

// TaggedFireEvent is a fire event with the region that contains it.
// An empty RegionID means no region contained the point.
type TaggedFireEvent struct {
	FireEvent
	RegionID   string `json:"region_id,omitempty"`
	RegionName string `json:"region_name,omitempty"`

	// Reverse-geocoding enrichment, only set by the streaming tagger.
	PlaceName    string `json:"place_name,omitempty"`
	PlaceRegion  string `json:"place_region,omitempty"`
	PlaceCountry string `json:"place_country,omitempty"`
	GeoSource    string `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// Matched reports whether a region contained the event.
func (t TaggedFireEvent) Matched() bool {
	return t.RegionID != ""
}

// AggregateRow is the detection count for one region.
type AggregateRow struct {
	RegionID   string  `json:"region_id"`
	RegionName string  `json:"region_name,omitempty"`
	Count      int     `json:"count"`
	TotalFRP   float64 `json:"total_frp"`
	MaxFRP     float64 `json:"max_frp"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
