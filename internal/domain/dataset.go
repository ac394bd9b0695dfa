package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ParseMode selects how LoadDataset treats rows that fail to parse.
type ParseMode int

const (
	// Lenient skips bad rows and records why in Dataset.Skipped.
	Lenient ParseMode = iota
	// Strict aborts the whole load on the first bad row.
	Strict
)

func (m ParseMode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// ParseParseMode accepts "lenient" or "strict" (case-insensitive).
func ParseParseMode(s string) (ParseMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("unknown parse mode %q", s)
	}
}

// Dataset is an immutable, ordered set of fire detections.
type Dataset struct {
	events  []FireEvent
	skipped []*ParseError
}

// LoadDataset parses rows into a Dataset, preserving input order. Empty input
// yields an empty dataset. In Strict mode the first bad row is returned as a
// *ParseError and no dataset is built.
func LoadDataset(rows []RawRow, mode ParseMode) (*Dataset, error) {
	ds := &Dataset{events: make([]FireEvent, 0, len(rows))}
	for i, row := range rows {
		event, err := ParseRow(i, row)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				return nil, err
			}
			if mode == Strict {
				return nil, perr
			}
			ds.skipped = append(ds.skipped, perr)
			continue
		}
		ds.events = append(ds.events, event)
	}
	return ds, nil
}

// NewDataset wraps already-parsed events. The slice is copied.
func NewDataset(events []FireEvent) *Dataset {
	return &Dataset{events: append([]FireEvent(nil), events...)}
}

// Len returns the number of loaded events.
func (d *Dataset) Len() int { return len(d.events) }

// Events returns a copy of every event in load order.
func (d *Dataset) Events() []FireEvent {
	return append([]FireEvent(nil), d.events...)
}

// Skipped returns the parse failures of rows dropped by a lenient load.
func (d *Dataset) Skipped() []*ParseError {
	return append([]*ParseError(nil), d.skipped...)
}

// FilterByBoundingBox returns the events inside box, in load order.
func (d *Dataset) FilterByBoundingBox(box BoundingBox) []FireEvent {
	return FilterByBoundingBox(d.events, box)
}

// FilterByHour returns the events acquired during hour, in load order.
func (d *Dataset) FilterByHour(hour Hour) []FireEvent {
	return FilterByHour(d.events, hour)
}

// Query combines the bounding-box and hour filters. A nil Box disables the
// spatial filter.
type Query struct {
	Box  *BoundingBox
	Hour Hour
}

// Filter returns the events matching every criterion of q, in load order.
func (d *Dataset) Filter(q Query) []FireEvent {
	out := make([]FireEvent, 0, len(d.events))
	for _, e := range d.events {
		if q.Box != nil && !q.Box.Contains(e.Latitude, e.Longitude) {
			continue
		}
		if !q.Hour.Matches(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterByBoundingBox returns the events of in that lie inside box, edges
// included, preserving order.
func FilterByBoundingBox(in []FireEvent, box BoundingBox) []FireEvent {
	out := make([]FireEvent, 0, len(in))
	for _, e := range in {
		if box.Contains(e.Latitude, e.Longitude) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByHour returns the events of in acquired during hour, preserving
// order. AllHours returns a copy of in.
func FilterByHour(in []FireEvent, hour Hour) []FireEvent {
	out := make([]FireEvent, 0, len(in))
	for _, e := range in {
		if hour.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Hour selects a single hour of day, or every hour when unset. The zero value
// is AllHours.
type Hour struct {
	value int
	set   bool
}

// AllHours disables hour filtering.
func AllHours() Hour { return Hour{} }

// AtHour selects detections acquired during h. Values outside 0..23 match
// nothing.
func AtHour(h int) Hour { return Hour{value: h, set: true} }

// Value returns the selected hour and whether one is selected.
func (h Hour) Value() (int, bool) { return h.value, h.set }

// Matches reports whether e was acquired during the selected hour.
func (h Hour) Matches(e FireEvent) bool {
	return !h.set || e.Hour() == h.value
}

func (h Hour) String() string {
	if !h.set {
		return "all"
	}
	return fmt.Sprintf("%02d", h.value)
}
