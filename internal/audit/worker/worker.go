// Package worker drains the audit outbox into Kafka on an interval.
// Fail-open: a publish failure is logged and retried next tick, it never
// blocks schema operations.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verity/internal/audit/metrics"
	"verity/internal/audit/store/postgres"
)

const defaultBatchSize = 100

// Source supplies unpublished outbox rows and records delivery.
type Source interface {
	NextBatch(ctx context.Context, limit int) ([]postgres.OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
	PendingCount(ctx context.Context) (int, error)
}

// Sink publishes one payload; the worker only marks rows whose publish
// returned nil.
type Sink interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker polls the outbox and forwards events to the sink.
type Worker struct {
	source    Source
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
}

// Option configures the Worker.
type Option func(*Worker)

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// New constructs a Worker polling at the given interval.
func New(source Source, sink Sink, logger *slog.Logger, interval time.Duration, opts ...Option) *Worker {
	w := &Worker{
		source:    source,
		sink:      sink,
		logger:    logger,
		interval:  interval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run drains the outbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes one batch. Rows that fail to publish stay unpublished
// and are retried on the next call; delivery is at-least-once.
func (w *Worker) DrainOnce(ctx context.Context) error {
	batch, err := w.source.NextBatch(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		w.observeDrain(ctx, 0)
		return nil
	}

	published := make([]uuid.UUID, 0, len(batch))
	for _, row := range batch {
		if err := w.sink.Publish(ctx, row.Key, row.Payload); err != nil {
			w.logger.WarnContext(ctx, "publish audit event failed",
				"event_id", row.ID,
				"error", err,
			)
			continue
		}
		published = append(published, row.ID)
	}

	if err := w.source.MarkPublished(ctx, published); err != nil {
		return err
	}
	w.observeDrain(ctx, len(published))

	w.logger.DebugContext(ctx, "outbox drained",
		"fetched", len(batch),
		"published", len(published),
	)
	return nil
}

func (w *Worker) observeDrain(ctx context.Context, published int) {
	if w.metrics == nil {
		return
	}
	depth, err := w.source.PendingCount(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "count outbox backlog failed", "error", err)
		return
	}
	w.metrics.ObserveDrain(depth, published)
}
