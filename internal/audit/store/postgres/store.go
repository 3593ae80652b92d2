package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "verity/internal/audit"
	txcontext "verity/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the
// drain worker. Kafka is the source of truth for audit events.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx := txcontext.From(ctx); tx != nil {
		return tx
	}
	return s.db
}

// EnsureSchema creates the outbox table when missing. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_outbox (
			id UUID PRIMARY KEY,
			event_key TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			published_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure audit outbox: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_audit_outbox_unpublished
		ON audit_outbox(created_at) WHERE published_at IS NULL
	`)
	if err != nil {
		return fmt.Errorf("ensure audit outbox index: %w", err)
	}
	return nil
}

// outboxPayload is the JSON structure published to Kafka. Field names are
// wire contract with the audit consumer; do not rename.
type outboxPayload struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Action      string `json:"action"`
	Version     int    `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
// Honors a transaction in context so events commit atomically with the
// schema change that produced them.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload := outboxPayload{
		ID:          event.ID.String(),
		Category:    event.Category,
		Action:      string(event.Action),
		Version:     event.Version,
		Description: event.Description,
		Checksum:    event.Checksum,
		RequestID:   event.RequestID,
		Notes:       event.Notes,
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if event.RunID != uuid.Nil {
		payload.RunID = event.RunID.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_outbox (id, event_key, payload)
		VALUES ($1, $2, $3)
	`, event.ID, string(event.Action), body)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// OutboxRow is one unpublished event ready for Kafka.
type OutboxRow struct {
	ID      uuid.UUID
	Key     string
	Payload []byte
}

// NextBatch returns up to limit unpublished events, oldest first.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_key, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox batch: %w", err)
	}
	defer rows.Close()

	var batch []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.Key, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return batch, nil
}

// PendingCount returns the number of unpublished events in the outbox.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM audit_outbox WHERE published_at IS NULL
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outbox backlog: %w", err)
	}
	return n, nil
}

// MarkPublished stamps rows as delivered so they are never re-sent.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = now()
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
