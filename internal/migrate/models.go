package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Migration is one versioned, idempotent schema change. Statements run in
// order inside a single transaction; every statement must be safe to re-run
// (IF NOT EXISTS guards, NULL-scoped backfills).
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// Checksum fingerprints the migration body. The journal stores it so an
// edited migration is detected instead of silently diverging from history.
func (m Migration) Checksum() string {
	h := sha256.New()
	h.Write([]byte(strings.Join(m.Statements, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// Applied is a journal row for a migration that has run to completion.
type Applied struct {
	Version     int
	Description string
	Checksum    string
	RunID       uuid.UUID
	AppliedAt   time.Time
}

// Result summarizes a single runner invocation.
type Result struct {
	RunID    uuid.UUID
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// StatusEntry pairs a registered migration with its journal state.
type StatusEntry struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	Applied     bool      `json:"applied"`
	AppliedAt   time.Time `json:"applied_at,omitzero"`
}

// Validate checks structural invariants of a migration list: versions start
// at 1, strictly increase without gaps, and every migration has statements.
func Validate(migrations []Migration) error {
	for i, m := range migrations {
		if m.Version != i+1 {
			return fmt.Errorf("migration %d: expected version %d, got %d", i, i+1, m.Version)
		}
		if m.Description == "" {
			return fmt.Errorf("migration %d: description is required", m.Version)
		}
		if len(m.Statements) == 0 {
			return fmt.Errorf("migration %d: at least one statement is required", m.Version)
		}
		for j, stmt := range m.Statements {
			if strings.TrimSpace(stmt) == "" {
				return fmt.Errorf("migration %d: statement %d is empty", m.Version, j)
			}
		}
	}
	return nil
}
