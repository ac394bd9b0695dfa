package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FIRMS CSV column names.
const (
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"
	ColFRP          = "frp"
	ColBrightness   = "bright_ti4"
	ColBrightnessT5 = "bright_ti5"
	ColAcqTime      = "acq_time"
	ColAcqDate      = "acq_date"
	ColSatellite    = "satellite"
	ColConfidence   = "confidence"
	ColDayNight     = "daynight"
)

// ParseRow converts one tokenized FIRMS row into a FireEvent. The returned
// *ParseError carries index as its Row.
func ParseRow(index int, row RawRow) (FireEvent, error) {
	lat, err := parseRequiredFloat(index, row, ColLatitude)
	if err != nil {
		return FireEvent{}, err
	}
	if lat < -90 || lat > 90 {
		return FireEvent{}, &ParseError{Row: index, Column: ColLatitude, Value: row[ColLatitude], Reason: "out of range [-90,90]"}
	}

	lon, err := parseRequiredFloat(index, row, ColLongitude)
	if err != nil {
		return FireEvent{}, err
	}
	if lon < -180 || lon > 180 {
		return FireEvent{}, &ParseError{Row: index, Column: ColLongitude, Value: row[ColLongitude], Reason: "out of range [-180,180]"}
	}

	frp, err := parseRequiredFloat(index, row, ColFRP)
	if err != nil {
		return FireEvent{}, err
	}

	acqTime, err := parseAcqTime(index, row[ColAcqTime])
	if err != nil {
		return FireEvent{}, err
	}

	event := FireEvent{
		Latitude:     lat,
		Longitude:    lon,
		FRP:          frp,
		Brightness:   parseFloatOrZero(row[ColBrightness]),
		BrightnessT5: parseFloatOrZero(row[ColBrightnessT5]),
		AcqTime:      acqTime,
		AcqDate:      parseAcqDate(row[ColAcqDate]),
		Satellite:    strings.TrimSpace(row[ColSatellite]),
		Confidence:   strings.TrimSpace(row[ColConfidence]),
		DayNight:     strings.TrimSpace(row[ColDayNight]),
	}
	event.ID = generateID(event)
	return event, nil
}

// ParseRawEvent deserializes a RawEvent's value (a flat JSON object of FIRMS
// columns) into a FireEvent.
func ParseRawEvent(raw RawEvent) (FireEvent, error) {
	var row RawRow
	if err := json.Unmarshal(raw.Value, &row); err != nil {
		return FireEvent{}, fmt.Errorf("parse raw event: %w", err)
	}
	event, err := ParseRow(int(raw.Offset), row)
	if err != nil {
		return FireEvent{}, fmt.Errorf("parse raw event: %w", err)
	}
	return event, nil
}

// parseRequiredFloat parses a mandatory numeric column. NaN and Inf are rejected.
func parseRequiredFloat(index int, row RawRow, col string) (float64, error) {
	s, ok := row[col]
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return 0, &ParseError{Row: index, Column: col, Reason: "missing"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Row: index, Column: col, Value: s, Reason: "not a number"}
	}
	return v, nil
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseAcqTime parses an HHMM acquisition time ("130" = 01:30, "1430" = 14:30).
// FIRMS drops leading zeros, so 1-4 digits are accepted.
func parseAcqTime(index int, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ParseError{Row: index, Column: ColAcqTime, Reason: "missing"}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{Row: index, Column: ColAcqTime, Value: s, Reason: "not a number"}
	}
	if v < 0 || v > 2359 || v%100 > 59 {
		return 0, &ParseError{Row: index, Column: ColAcqTime, Value: s, Reason: "not a valid HHMM time"}
	}
	return v, nil
}

// parseAcqDate parses the optional YYYY-MM-DD acquisition date.
func parseAcqDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// generateID produces a deterministic ID from the detection's key fields so
// that replaying the same row yields the same sink message key.
func generateID(e FireEvent) string {
	input := fmt.Sprintf("%.5f|%.5f|%s|%04d|%s",
		e.Latitude, e.Longitude, e.AcqDate.Format(time.DateOnly), e.AcqTime, e.Satellite)
	hash := sha256.Sum256([]byte(input))
	return "fire-" + hex.EncodeToString(hash[:8])
}

// SerializeTaggedEvent marshals a tagged event for the sink topic, keyed by
// event ID.
func SerializeTaggedEvent(event TaggedFireEvent) (OutputEvent, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize tagged event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(event.ID),
		Value: data,
		Headers: map[string]string{
			"region_id":    event.RegionID,
			"processed_at": clock.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
