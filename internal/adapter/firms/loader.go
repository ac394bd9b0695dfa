// Package firms reads NASA FIRMS active fire CSV exports from a local file
// or an HTTP(S) URL.
package firms

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

// Loader fetches and tokenizes FIRMS CSV files.
type Loader struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewLoader creates a loader. timeout bounds remote downloads.
func NewLoader(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
}

// LoadDataset reads source and parses it into a dataset. Any failure,
// including a bad row in strict mode, is returned as *domain.DatasetLoadError.
func (l *Loader) LoadDataset(ctx context.Context, source string, mode domain.ParseMode) (*domain.Dataset, error) {
	rows, err := l.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	ds, err := domain.LoadDataset(rows, mode)
	if err != nil {
		return nil, &domain.DatasetLoadError{Source: source, Err: err}
	}

	skipped := ds.Skipped()
	l.metrics.RowsLoaded.Add(float64(ds.Len()))
	l.metrics.RowsSkipped.Add(float64(len(skipped)))
	if len(skipped) > 0 {
		l.logger.Warn("skipped malformed fire rows",
			"source", source,
			"skipped", len(skipped),
			"first", skipped[0].Error(),
		)
	}
	l.logger.Info("fire dataset loaded", "source", source, "events", ds.Len(), "mode", mode.String())
	return ds, nil
}

// Load returns the tokenized rows of source.
func (l *Loader) Load(ctx context.Context, source string) ([]domain.RawRow, error) {
	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, &domain.DatasetLoadError{Source: source, Err: err}
	}
	defer rc.Close()

	rows, err := ReadRows(rc)
	if err != nil {
		return nil, &domain.DatasetLoadError{Source: source, Err: err}
	}
	return rows, nil
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if !isURL(source) {
		return os.Open(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: status %d: %s", resp.StatusCode, body)
	}
	return resp.Body, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ReadRows tokenizes a CSV stream into rows keyed by lower-cased header names.
// Short rows simply lack the trailing columns; extra fields are ignored.
func ReadRows(r io.Reader) ([]domain.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var rows []domain.RawRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows), err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		row := make(domain.RawRow, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
}
