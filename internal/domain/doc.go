// Package domain models NASA FIRMS active-fire (hotspot) detections and the
// pure transforms applied to them: parsing, bounding-box and hour-of-day
// filtering, and per-region aggregation.
//
// # Data Source
//
// Detections come from the FIRMS VIIRS (Suomi NPP / NOAA-20) CSV downloads,
// e.g. SUOMI_VIIRS_C2_USA_contiguous_and_Hawaii_7d.csv. One row per detected
// 375 m pixel. Columns used:
//
//	latitude, longitude   WGS-84 pixel centre (required)
//	frp                   fire radiative power in MW (required)
//	acq_time              acquisition time, HHMM UTC (required)
//	bright_ti4            I-4 brightness temperature in K (optional, 0 when absent)
//	bright_ti5            I-5 brightness temperature in K (optional)
//	acq_date              YYYY-MM-DD (optional)
//	satellite, confidence, daynight (optional, copied verbatim)
//
// # Time Format
//
// acq_time is HHMM with leading zeros dropped: "130" is 01:30 and "5" is
// 00:05. The hour of day used for filtering and animation is acq_time / 100.
//
// # Row Validation
//
// A row is rejected with a [ParseError] when a required column is missing or
// non-numeric, latitude is outside [-90,90], longitude is outside [-180,180],
// or acq_time is not a valid HHMM value. [LoadDataset] either skips such rows
// ([Lenient]) or fails the whole load ([Strict]).
//
// # ID Generation
//
// Event IDs are deterministic SHA-256 hashes of lat|lon|date|time|satellite so
// that replays of the same row produce the same sink message key.
package domain
