package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attaches the nearest place name to a tagged event.
// If geocoder is nil the event is returned unchanged; on failure GeoSource is
// set to "failed" and the event is otherwise untouched.
func EnrichWithGeocoding(ctx context.Context, event TaggedFireEvent, geocoder Geocoder, logger *slog.Logger) TaggedFireEvent {
	if geocoder == nil {
		return event
	}

	result, err := geocoder.ReverseGeocode(ctx, event.Latitude, event.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"event_id", event.ID,
			"lat", event.Latitude,
			"lon", event.Longitude,
			"error", err,
		)
		event.GeoSource = "failed"
		return event
	}
	if !result.Found() {
		event.GeoSource = "original"
		return event
	}

	event.PlaceName = result.PlaceName
	if event.PlaceName == "" {
		event.PlaceName = result.FormattedAddress
	}
	event.PlaceRegion = result.Region
	event.PlaceCountry = result.Country
	event.GeoSource = "reverse"
	return event
}
