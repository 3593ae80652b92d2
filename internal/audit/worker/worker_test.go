package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/audit/metrics"
	"verity/internal/audit/store/postgres"
)

type fakeSource struct {
	rows      []postgres.OutboxRow
	published []uuid.UUID
}

func (f *fakeSource) NextBatch(ctx context.Context, limit int) ([]postgres.OutboxRow, error) {
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeSource) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	f.published = append(f.published, ids...)
	return nil
}

func (f *fakeSource) PendingCount(ctx context.Context) (int, error) {
	return len(f.rows) - len(f.published), nil
}

type fakeSink struct {
	failKeys map[string]bool
	sent     []string
}

func (f *fakeSink) Publish(ctx context.Context, key string, payload []byte) error {
	if f.failKeys[key] {
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, key)
	return nil
}

func testWorker(source Source, sink Sink) *Worker {
	return New(source, sink, slog.New(slog.DiscardHandler), time.Second)
}

func TestDrainOncePublishesBatch(t *testing.T) {
	rows := []postgres.OutboxRow{
		{ID: uuid.New(), Key: "migration_applied", Payload: []byte(`{}`)},
		{ID: uuid.New(), Key: "schema_report", Payload: []byte(`{}`)},
	}
	source := &fakeSource{rows: rows}
	sink := &fakeSink{}

	require.NoError(t, testWorker(source, sink).DrainOnce(context.Background()))

	assert.Equal(t, []string{"migration_applied", "schema_report"}, sink.sent)
	assert.Equal(t, []uuid.UUID{rows[0].ID, rows[1].ID}, source.published)
}

func TestDrainOnceKeepsFailedRows(t *testing.T) {
	rows := []postgres.OutboxRow{
		{ID: uuid.New(), Key: "migration_applied", Payload: []byte(`{}`)},
		{ID: uuid.New(), Key: "schema_report", Payload: []byte(`{}`)},
	}
	source := &fakeSource{rows: rows}
	sink := &fakeSink{failKeys: map[string]bool{"migration_applied": true}}

	require.NoError(t, testWorker(source, sink).DrainOnce(context.Background()))

	// Only the successful row is marked; the failed one is retried next tick.
	assert.Equal(t, []uuid.UUID{rows[1].ID}, source.published)
}

func TestDrainOnceEmptyOutbox(t *testing.T) {
	source := &fakeSource{}
	sink := &fakeSink{}

	require.NoError(t, testWorker(source, sink).DrainOnce(context.Background()))
	assert.Empty(t, sink.sent)
	assert.Empty(t, source.published)
}

func TestDrainOnceRecordsBacklog(t *testing.T) {
	rows := []postgres.OutboxRow{
		{ID: uuid.New(), Key: "migration_applied", Payload: []byte(`{}`)},
		{ID: uuid.New(), Key: "schema_report", Payload: []byte(`{}`)},
	}
	source := &fakeSource{rows: rows}
	sink := &fakeSink{failKeys: map[string]bool{"schema_report": true}}
	m := metrics.New()

	w := New(source, sink, slog.New(slog.DiscardHandler), time.Second, WithMetrics(m))
	require.NoError(t, w.DrainOnce(context.Background()))

	// One row published, one retried next tick.
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxDepth))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Published))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := testWorker(&fakeSource{}, &fakeSink{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
