package main

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/geoindex"
)

func row(lat, lon, frp, acqTime string) domain.RawRow {
	return domain.RawRow{"latitude": lat, "longitude": lon, "frp": frp, "acq_time": acqTime}
}

func TestBuildReport(t *testing.T) {
	rows := []domain.RawRow{
		row("39.8", "-121.4", "10", "2042"),
		row("north", "-121.4", "10", "2042"),
		row("40.1", "-122.0", "3.2", "0130"),
		row("-3.1", "-60.0", "5", "130"),
		row("41.0", "-120.0", "1", "2500"),
		row("south", "-120.0", "1", "1200"),
	}
	ds, err := domain.LoadDataset(rows, domain.Lenient)
	require.NoError(t, err)

	ix, err := geoindex.Build([]domain.BoundaryRegion{{
		ID:   "06",
		Name: "California",
		Polygon: geom.Polygon{{
			{X: -124.5, Y: 32.5}, {X: -114, Y: 32.5}, {X: -114, Y: 42}, {X: -124.5, Y: 42}, {X: -124.5, Y: 32.5},
		}},
	}})
	require.NoError(t, err)

	got := buildReport("fires.csv", len(rows), ds, ix.Tag(ds.Events()))

	assert.Equal(t, 6, got.Rows)
	assert.Equal(t, 3, got.Parsed)
	assert.Equal(t, 3, got.Skipped)
	assert.Equal(t, 2, got.Matched)
	assert.Equal(t, 1, got.Unmatched)
	assert.Equal(t, 1, got.Hours[20])
	assert.Equal(t, 2, got.Hours[1])

	wantReasons := []skipReason{
		{Column: "latitude", Reason: "not a number", Count: 2, FirstRow: 1},
		{Column: "acq_time", Reason: "not a valid HHMM time", Count: 1, FirstRow: 4},
	}
	if diff := cmp.Diff(wantReasons, got.Reasons); diff != "" {
		t.Errorf("skip reasons mismatch (-want +got):\n%s", diff)
	}
}
