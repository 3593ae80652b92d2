// Package audit captures schema-change events for the compliance trail.
// Events are written to a transactional outbox and drained to Kafka by a
// worker; Kafka is the durable sink, the outbox only buffers.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened to the schema.
type Action string

const (
	ActionMigrationApplied   Action = "migration_applied"
	ActionSchemaReport       Action = "schema_report"
	ActionJournalInitialized Action = "journal_initialized"
)

// Category is fixed for this service; the shared audit topic is multiplexed
// by category on the consumer side.
const Category = "schema"

// Event is emitted from the migration runner and inspector. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID          uuid.UUID
	Category    string
	Action      Action
	Version     int
	Description string
	RunID       uuid.UUID
	Checksum    string
	RequestID   string
	// Notes carries operator free-text, e.g. release notes accompanying a
	// schema change.
	Notes     string
	Timestamp time.Time
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}
