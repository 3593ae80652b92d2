//go:build integration

package publisher_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "verity/internal/audit"
	"verity/internal/audit/publisher"
	auditpg "verity/internal/audit/store/postgres"
	auditworker "verity/internal/audit/worker"
	"verity/pkg/testutil/containers"
)

const testTopic = "verity.schema-audit"

func TestKafkaPublishRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rp := containers.NewRedpandaContainer(t)
	rp.CreateTopic(t, testTopic)

	sink, err := publisher.NewKafka([]string{rp.Broker}, testTopic)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Publish(ctx, "migration_applied", []byte(`{"version":4}`)))

	consumeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	records := rp.Consume(t, consumeCtx, testTopic, 1)

	require.Len(t, records, 1)
	assert.Equal(t, "migration_applied", string(records[0].Key))
	assert.JSONEq(t, `{"version":4}`, string(records[0].Value))
}

// TestOutboxToKafka exercises the full pipeline: event appended to the
// Postgres outbox, drained by the worker, observed on the topic.
func TestOutboxToKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pg := containers.NewPostgresContainer(t)
	rp := containers.NewRedpandaContainer(t)
	rp.CreateTopic(t, testTopic)

	ctx := context.Background()

	store := auditpg.New(pg.DB)
	require.NoError(t, store.EnsureSchema(ctx))

	event := audit.Event{
		ID:        uuid.New(),
		Category:  audit.Category,
		Action:    audit.ActionMigrationApplied,
		Version:   4,
		RunID:     uuid.New(),
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, store.Append(ctx, event))

	sink, err := publisher.NewKafka([]string{rp.Broker}, testTopic)
	require.NoError(t, err)
	defer sink.Close()

	w := auditworker.New(store, sink, slog.New(slog.DiscardHandler), time.Second)
	require.NoError(t, w.DrainOnce(ctx))

	consumeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	records := rp.Consume(t, consumeCtx, testTopic, 1)
	require.Len(t, records, 1)
	assert.Equal(t, "migration_applied", string(records[0].Key))

	// The drained row is gone from the outbox.
	batch, err := store.NextBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
