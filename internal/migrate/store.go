package migrate

import (
	"context"

	"github.com/google/uuid"
)

// Store persists the migration journal and executes migrations. Postgres is
// the production implementation; the in-memory store backs unit tests.
type Store interface {
	// EnsureJournal creates the journal table when missing. Idempotent; the
	// flag is true only on the call that created it.
	EnsureJournal(ctx context.Context) (created bool, err error)

	// Applied returns journal rows keyed by version.
	Applied(ctx context.Context) (map[int]Applied, error)

	// Apply executes the migration's statements and records the journal row
	// in one transaction. A failed statement leaves neither behind.
	Apply(ctx context.Context, m Migration, runID uuid.UUID) error

	// AcquireLock serializes runners against the same database. Returns
	// sentinel.ErrUnavailable (wrapped) when another runner holds the lock.
	AcquireLock(ctx context.Context) error

	// ReleaseLock releases a lock taken by AcquireLock.
	ReleaseLock(ctx context.Context) error
}
