package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func newCached(t *testing.T, inner domain.Geocoder, size int) (*CachedGeocoder, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetricsForTesting()
	cached, err := NewCachedGeocoder(inner, size, m)
	require.NoError(t, err)
	return cached, m
}

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Paradise, CA"}}
	cached, m := newCached(t, inner, 10)

	r1, err := cached.ReverseGeocode(context.Background(), 39.8123, -121.4376)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), 39.8123, -121.4376)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues(methodReverse, "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues(methodReverse, "miss")))
}

func TestCachedGeocoder_RoundsNearbyCoordinates(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Paradise, CA"}}
	cached, _ := newCached(t, inner, 10)

	_, err := cached.ReverseGeocode(context.Background(), 39.81231, -121.43761)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 39.81229, -121.43759)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached, _ := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), 0, -150)
	_, _ = cached.ReverseGeocode(context.Background(), 0, -150)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedGeocoder_PlaceNameOnlyCached(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{PlaceName: "Paradise"}}
	cached, _ := newCached(t, inner, 10)

	r1, err := cached.ReverseGeocode(context.Background(), 39.8123, -121.4376)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), 39.8123, -121.4376)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("timeout")}
	cached, _ := newCached(t, inner, 10)

	_, err := cached.ReverseGeocode(context.Background(), 39.8, -121.4)
	require.Error(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 39.8, -121.4)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedGeocoder_Eviction(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "somewhere"}}
	cached, _ := newCached(t, inner, 2)

	ctx := context.Background()
	_, _ = cached.ReverseGeocode(ctx, 1, 1)
	_, _ = cached.ReverseGeocode(ctx, 2, 2)
	_, _ = cached.ReverseGeocode(ctx, 3, 3) // evicts (1,1)
	assert.Equal(t, 2, cached.Len())

	_, _ = cached.ReverseGeocode(ctx, 1, 1)
	assert.Equal(t, 4, inner.calls)
}

func TestNewCachedGeocoder_InvalidSize(t *testing.T) {
	_, err := NewCachedGeocoder(&countingGeocoder{}, 0, observability.NewMetricsForTesting())
	require.Error(t, err)
}
