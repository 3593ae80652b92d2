package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"verity/pkg/platform/sentinel"
)

// advisoryLockKey namespaces the runner's pg advisory lock. Fixed for the
// lifetime of the journal; changing it would let two releases run concurrently.
const advisoryLockKey int64 = 0x766572697479 // "verity"

// PostgresStore persists the migration journal in PostgreSQL and executes
// migrations against the same database.
type PostgresStore struct {
	db *sql.DB

	// mu guards lockConn: concurrent apply requests share one store, so the
	// check-and-set below must not interleave.
	mu sync.Mutex
	// lockConn pins the advisory lock to one pooled connection; advisory
	// locks are session-scoped, so unlock must run on the same session.
	lockConn *sql.Conn
}

// NewPostgres constructs a PostgreSQL-backed migration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureJournal creates the journal table when missing. The returned flag is
// true only on the call that actually created it, so the caller can record
// first-time initialization exactly once.
func (s *PostgresStore) EnsureJournal(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass('schema_migrations') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check journal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			checksum TEXT NOT NULL,
			run_id UUID NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return false, fmt.Errorf("ensure journal: %w", err)
	}
	return !exists, nil
}

func (s *PostgresStore) Applied(ctx context.Context) (map[int]Applied, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, description, checksum, run_id, applied_at
		FROM schema_migrations
		ORDER BY version
	`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Applied)
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Version, &a.Description, &a.Checksum, &a.RunID, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		applied[a.Version] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return applied, nil
}

func (s *PostgresStore) Apply(ctx context.Context, m Migration, runID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, description, checksum, run_id)
		VALUES ($1, $2, $3, $4)
	`, m.Version, m.Description, m.Checksum(), runID)
	if err != nil {
		return fmt.Errorf("journal migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// AcquireLock takes a session-scoped advisory lock. Non-blocking: a held
// lock means another runner is mid-flight, and the caller should back off
// rather than queue behind DDL.
func (s *PostgresStore) AcquireLock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockConn != nil {
		return fmt.Errorf("migration lock held by another runner: %w", sentinel.ErrUnavailable)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, advisoryLockKey).Scan(&acquired); err != nil {
		_ = conn.Close()
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if !acquired {
		_ = conn.Close()
		return fmt.Errorf("migration lock held by another runner: %w", sentinel.ErrUnavailable)
	}

	s.lockConn = conn
	return nil
}

func (s *PostgresStore) ReleaseLock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockConn == nil {
		return fmt.Errorf("release migration lock: lock was not held")
	}
	conn := s.lockConn
	s.lockConn = nil

	var released bool
	err := conn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1)`, advisoryLockKey).Scan(&released)
	if cerr := conn.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("release migration lock: %w", err)
	}
	if !released {
		return fmt.Errorf("release migration lock: lock was not held")
	}
	return nil
}
