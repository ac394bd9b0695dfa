package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw detections from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw detection into a tagged output event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes tagged events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Progress is a point-in-time summary of what the pipeline has done.
type Progress struct {
	Consumed    int64     `json:"consumed"`
	Produced    int64     `json:"produced"`
	Rejected    int64     `json:"rejected"`
	LastBatchAt time.Time `json:"last_batch_at,omitzero"`
}

// Pipeline runs the extract, tag, load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int

	ready    atomic.Bool
	consumed atomic.Int64
	produced atomic.Int64
	rejected atomic.Int64

	mu          sync.Mutex
	lastBatchAt time.Time
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a batch has been loaded to the sink.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Progress returns the running totals since start.
func (p *Pipeline) Progress() Progress {
	p.mu.Lock()
	last := p.lastBatchAt
	p.mu.Unlock()
	return Progress{
		Consumed:    p.consumed.Load(),
		Produced:    p.produced.Load(),
		Rejected:    p.rejected.Load(),
		LastBatchAt: last,
	}
}

// Run processes batches until ctx is cancelled. Extract and load failures
// are retried with exponential backoff; it only returns on cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for ctx.Err() == nil {
		if err := p.runBatch(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("batch failed, backing off", "error", err, "backoff", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				break
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// runBatch performs one extract, transform, load cycle. A returned error
// means nothing from the batch reached the sink and no offsets were committed
// apart from rejected messages.
func (p *Pipeline) runBatch(ctx context.Context) error {
	start := time.Now()

	raws, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return nil
	}
	p.consumed.Add(int64(len(raws)))
	p.metrics.MessagesConsumed.Add(float64(len(raws)))
	p.metrics.BatchSize.Observe(float64(len(raws)))

	out := make([]domain.OutputEvent, 0, len(raws))
	accepted := make([]domain.RawEvent, 0, len(raws))
	for _, raw := range raws {
		ev, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			// A malformed detection will never parse; commit it so it is not redelivered.
			p.logger.Warn("rejecting detection",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.rejected.Add(1)
			p.metrics.TransformErrors.Inc()
			p.commit(ctx, raw)
			continue
		}
		out = append(out, ev)
		accepted = append(accepted, raw)
	}
	if len(out) == 0 {
		return nil
	}

	if err := p.loader.LoadBatch(ctx, out); err != nil {
		return err
	}
	for _, raw := range accepted {
		p.commit(ctx, raw)
	}

	p.produced.Add(int64(len(out)))
	p.metrics.MessagesProduced.Add(float64(len(out)))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.mu.Lock()
	p.lastBatchAt = time.Now()
	p.mu.Unlock()
	p.ready.Store(true)
	return nil
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
