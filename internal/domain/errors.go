package domain

import "fmt"

// HoursPerDay is the length of the hour-of-day cycle.
const HoursPerDay = 24

// ParseError describes a FIRMS row whose required field is missing, non-numeric,
// or out of range. Row is the zero-based index into the input rows.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Column, e.Reason)
	}
	return fmt.Sprintf("row %d: %s=%q: %s", e.Row, e.Column, e.Value, e.Reason)
}

// InvalidHourError is returned when an hour of day outside 0..23 is requested.
type InvalidHourError struct {
	Hour int
}

func (e *InvalidHourError) Error() string {
	return fmt.Sprintf("invalid hour %d: must be in [0,23]", e.Hour)
}

// ValidateHour returns an *InvalidHourError when h is outside 0..23.
func ValidateHour(h int) error {
	if h < 0 || h >= HoursPerDay {
		return &InvalidHourError{Hour: h}
	}
	return nil
}

// BoundaryLoadError wraps a failed one-shot load of region geometry.
type BoundaryLoadError struct {
	Source string
	Err    error
}

func (e *BoundaryLoadError) Error() string {
	return fmt.Sprintf("load boundaries from %s: %v", e.Source, e.Err)
}

func (e *BoundaryLoadError) Unwrap() error { return e.Err }

// DatasetLoadError wraps a failed one-shot load of fire detection rows.
type DatasetLoadError struct {
	Source string
	Err    error
}

func (e *DatasetLoadError) Error() string {
	return fmt.Sprintf("load fire dataset from %s: %v", e.Source, e.Err)
}

func (e *DatasetLoadError) Unwrap() error { return e.Err }
