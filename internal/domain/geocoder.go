package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Region           string // first-level subdivision, e.g. "California"
	Country          string
	Confidence       float64 // 0.0-1.0 provider confidence score
}

// Found reports whether the provider matched a place.
func (r GeocodingResult) Found() bool {
	return r.PlaceName != "" || r.FormattedAddress != ""
}

// Geocoder resolves detection coordinates to the nearest named place.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
