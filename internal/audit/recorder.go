package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"verity/internal/migrate"
	"verity/pkg/requestcontext"
)

// Recorder adapts a Store to the migration runner's Auditor interface.
// Writes are synchronous and fail-closed: if the event cannot be persisted,
// the migration run fails.
type Recorder struct {
	store Store
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// MigrationApplied records one applied migration.
func (r *Recorder) MigrationApplied(ctx context.Context, m migrate.Migration, runID uuid.UUID) error {
	event := Event{
		ID:          uuid.New(),
		Category:    Category,
		Action:      ActionMigrationApplied,
		Version:     m.Version,
		Description: m.Description,
		RunID:       runID,
		Checksum:    m.Checksum(),
		RequestID:   requestcontext.RequestID(ctx),
		Timestamp:   requestcontext.Now(ctx).UTC(),
	}
	if err := r.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// JournalInitialized records the one-time creation of the migration journal.
func (r *Recorder) JournalInitialized(ctx context.Context, runID uuid.UUID) error {
	event := Event{
		ID:        uuid.New(),
		Category:  Category,
		Action:    ActionJournalInitialized,
		RunID:     runID,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx).UTC(),
	}
	if err := r.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// SchemaReport records that a readiness report was generated.
func (r *Recorder) SchemaReport(ctx context.Context, notes string) error {
	event := Event{
		ID:        uuid.New(),
		Category:  Category,
		Action:    ActionSchemaReport,
		RequestID: requestcontext.RequestID(ctx),
		Notes:     notes,
		Timestamp: requestcontext.Now(ctx).UTC(),
	}
	if err := r.store.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
