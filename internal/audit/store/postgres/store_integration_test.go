//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "verity/internal/audit"
	auditpg "verity/internal/audit/store/postgres"
	txcontext "verity/pkg/platform/tx"
	"verity/pkg/testutil/containers"
)

type OutboxStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
}

func TestOutboxStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = auditpg.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *OutboxStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_outbox"))
}

func newEvent(action audit.Action, version int) audit.Event {
	return audit.Event{
		ID:          uuid.New(),
		Category:    audit.Category,
		Action:      action,
		Version:     version,
		Description: "items handover verification flag",
		RunID:       uuid.New(),
		Checksum:    "abc123",
		Timestamp:   time.Now().UTC(),
	}
}

func (s *OutboxStoreSuite) TestAppendAndDrain() {
	ctx := context.Background()

	event := newEvent(audit.ActionMigrationApplied, 4)
	s.Require().NoError(s.store.Append(ctx, event))

	batch, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(batch, 1)
	s.Equal(event.ID, batch[0].ID)
	s.Equal(string(audit.ActionMigrationApplied), batch[0].Key)

	var payload map[string]any
	s.Require().NoError(json.Unmarshal(batch[0].Payload, &payload))
	s.Equal("schema", payload["category"])
	s.Equal("migration_applied", payload["action"])
	s.Equal(float64(4), payload["version"])

	pending, err := s.store.PendingCount(ctx)
	s.Require().NoError(err)
	s.Equal(1, pending)

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{event.ID}))

	batch, err = s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Empty(batch)

	pending, err = s.store.PendingCount(ctx)
	s.Require().NoError(err)
	s.Zero(pending)
}

func (s *OutboxStoreSuite) TestBatchOrderAndLimit() {
	ctx := context.Background()

	first := newEvent(audit.ActionMigrationApplied, 1)
	second := newEvent(audit.ActionMigrationApplied, 2)
	third := newEvent(audit.ActionSchemaReport, 0)

	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, third))

	batch, err := s.store.NextBatch(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(batch, 2)
	s.Equal(first.ID, batch[0].ID)
	s.Equal(second.ID, batch[1].ID)
}

// TestAppendInTransaction checks the outbox property: an event appended
// inside a rolled-back transaction is never published.
func (s *OutboxStoreSuite) TestAppendInTransaction() {
	ctx := context.Background()

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	txCtx := txcontext.WithTx(ctx, tx)
	s.Require().NoError(s.store.Append(txCtx, newEvent(audit.ActionMigrationApplied, 3)))
	s.Require().NoError(tx.Rollback())

	batch, err := s.store.NextBatch(ctx, 10)
	s.Require().NoError(err)
	s.Empty(batch)
}
