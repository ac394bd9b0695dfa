package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
	"github.com/couchcryptid/fire-hotspot-service/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	mu      sync.Mutex
	batches [][]domain.RawEvent
	errs    []error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	m.mu.Lock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		m.mu.Unlock()
		return nil, err
	}
	if len(m.batches) > 0 {
		b := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	// Block until cancelled to simulate waiting for messages.
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	failKey string
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.failKey != "" && string(raw.Key) == m.failKey {
		return domain.OutputEvent{}, errors.New("bad message")
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.OutputEvent
	failures int
	calls    atomic.Int32
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.loaded))
	for i, e := range m.loaded {
		out[i] = string(e.Key)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// raw builds a raw event whose Commit records the key into committed.
func raw(key string, committed *sync.Map) domain.RawEvent {
	return domain.RawEvent{
		Key:   []byte(key),
		Value: []byte(`{}`),
		Topic: "raw-fire-detections",
		Commit: func(context.Context) error {
			committed.Store(key, true)
			return nil
		},
	}
}

func runUntil(t *testing.T, p *pipeline.Pipeline, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}

// --- tests ---

func TestPipeline_ProcessesBatchAndCommits(t *testing.T) {
	var committed sync.Map
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw("a", &committed), raw("b", &committed)}}}
	loader := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, &mockTransformer{}, loader, discardLogger(), metrics, 10)

	runUntil(t, p, func() bool { return len(loader.keys()) == 2 })

	assert.Equal(t, []string{"a", "b"}, loader.keys())
	for _, k := range []string{"a", "b"} {
		_, ok := committed.Load(k)
		assert.True(t, ok, "offset for %s should be committed", k)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_TransformErrorSkipsAndCommits(t *testing.T) {
	var committed sync.Map
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw("good", &committed), raw("bad", &committed)}}}
	loader := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, loader, discardLogger(), metrics, 10)

	runUntil(t, p, func() bool {
		_, ok := committed.Load("bad")
		return ok && len(loader.keys()) == 1
	})

	assert.Equal(t, []string{"good"}, loader.keys())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TransformErrors))
}

func TestPipeline_LoadFailureDoesNotCommit(t *testing.T) {
	var committed sync.Map
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw("a", &committed)}}}
	loader := &mockLoader{failures: 100}
	p := pipeline.New(ext, &mockTransformer{}, loader, discardLogger(), observability.NewMetricsForTesting(), 10)

	runUntil(t, p, func() bool { return loader.calls.Load() >= 1 })

	_, ok := committed.Load("a")
	assert.False(t, ok, "offset must not be committed when the sink write fails")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_ExtractErrorRetries(t *testing.T) {
	var committed sync.Map
	ext := &mockExtractor{
		errs:    []error{errors.New("leader not available")},
		batches: [][]domain.RawEvent{{raw("a", &committed)}},
	}
	loader := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, loader, discardLogger(), observability.NewMetricsForTesting(), 10)

	runUntil(t, p, func() bool { return len(loader.keys()) == 1 })
}

func TestPipeline_RecoversAfterRepeatedFailures(t *testing.T) {
	tests := []struct {
		name     string
		errs     []error
		failures int
	}{
		{"extract", []error{errors.New("leader not available"), errors.New("leader not available"), errors.New("leader not available")}, 0},
		{"load", nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var committed sync.Map
			// The uncommitted batch is redelivered after each failed load.
			ext := &mockExtractor{errs: tt.errs}
			for range tt.failures + 1 {
				ext.batches = append(ext.batches, []domain.RawEvent{raw("a", &committed)})
			}
			loader := &mockLoader{failures: tt.failures}
			p := pipeline.New(ext, &mockTransformer{}, loader, discardLogger(), observability.NewMetricsForTesting(), 10)

			runUntil(t, p, func() bool {
				_, ok := committed.Load("a")
				return ok
			})

			assert.Equal(t, []string{"a"}, loader.keys())
			assert.Equal(t, int32(tt.failures+1), loader.calls.Load())
		})
	}
}

func TestPipeline_Readiness(t *testing.T) {
	var committed sync.Map
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw("a", &committed)}}}
	loader := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{}, loader, discardLogger(), observability.NewMetricsForTesting(), 10)

	require.Error(t, p.CheckReadiness(context.Background()))
	runUntil(t, p, func() bool { return p.CheckReadiness(context.Background()) == nil })
}

func TestPipeline_StopsOnCancel(t *testing.T) {
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))
}

func TestPipeline_Progress(t *testing.T) {
	var committed sync.Map
	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw("a", &committed), raw("bad", &committed), raw("c", &committed)}}}
	loader := &mockLoader{}
	p := pipeline.New(ext, &mockTransformer{failKey: "bad"}, loader, discardLogger(), observability.NewMetricsForTesting(), 10)

	assert.True(t, p.Progress().LastBatchAt.IsZero())
	runUntil(t, p, func() bool { return len(loader.keys()) == 2 })

	got := p.Progress()
	assert.Equal(t, int64(3), got.Consumed)
	assert.Equal(t, int64(2), got.Produced)
	assert.Equal(t, int64(1), got.Rejected)
	assert.False(t, got.LastBatchAt.IsZero())
}
