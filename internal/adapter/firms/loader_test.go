package firms

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

const sampleCSV = `latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight
30.0,-90.0,330.5,0.39,0.36,2024-08-01,130,N,VIIRS,n,2.0NRT,290.1,5.0,N
45.0,-70.0,345.2,0.41,0.45,2024-08-01,1430,N,VIIRS,h,2.0NRT,295.7,10.0,D
10.0,-150.0,310.0,0.40,0.44,2024-08-01,900,1,VIIRS,l,2.0NRT,280.0,1.0,N
`

func newTestLoader() (*Loader, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewLoader(5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), m), m
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fires.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadRows(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "30.0", rows[0]["latitude"])
	assert.Equal(t, "130", rows[0]["acq_time"])
	assert.Equal(t, "D", rows[1]["daynight"])
	assert.Equal(t, "1.0", rows[2]["frp"])
}

func TestReadRows_NormalizesHeaderAndRaggedRows(t *testing.T) {
	input := "\ufeffLatitude, Longitude ,FRP,ACQ_TIME\n1,2,3,4\n5,6\n\n7,8,9,10,extra\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, domain.RawRow{"latitude": "1", "longitude": "2", "frp": "3", "acq_time": "4"}, rows[0])
	assert.Equal(t, domain.RawRow{"latitude": "5", "longitude": "6"}, rows[1])
	assert.Equal(t, "10", rows[2]["acq_time"])
}

func TestReadRows_Empty(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadRows_MalformedQuote(t *testing.T) {
	_, err := ReadRows(strings.NewReader("latitude,longitude\n\"1,2\n"))
	assert.Error(t, err)
}

func TestLoader_LoadDataset_File(t *testing.T) {
	l, m := newTestLoader()
	path := writeTemp(t, sampleCSV+"abc,-90,1,0,0,2024-08-01,100,N,VIIRS,n,2,1,1,N\n")

	ds, err := l.LoadDataset(context.Background(), path, domain.Lenient)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Len(t, ds.Skipped(), 1)
	assert.Len(t, ds.FilterByBoundingBox(domain.ContinentalUS), 2)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.RowsLoaded), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.RowsSkipped), 0)
}

func TestLoader_LoadDataset_StrictFails(t *testing.T) {
	l, _ := newTestLoader()
	path := writeTemp(t, sampleCSV+"abc,-90,1,0,0,2024-08-01,100,N,VIIRS,n,2,1,1,N\n")

	_, err := l.LoadDataset(context.Background(), path, domain.Strict)

	var loadErr *domain.DatasetLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, path, loadErr.Source)
	var perr *domain.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 3, perr.Row)
}

func TestLoader_Load_MissingFile(t *testing.T) {
	l, _ := newTestLoader()

	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))

	var loadErr *domain.DatasetLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoader_Load_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()
	l, _ := newTestLoader()

	rows, err := l.Load(context.Background(), srv.URL+"/viirs.csv")

	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestLoader_Load_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid MAP_KEY", http.StatusForbidden)
	}))
	defer srv.Close()
	l, _ := newTestLoader()

	_, err := l.Load(context.Background(), srv.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
