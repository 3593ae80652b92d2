package migrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"verity/pkg/platform/sentinel"
)

// InMemory is a Store for unit tests. It journals migrations and records the
// statements it was asked to execute without touching a database.
type InMemory struct {
	mu          sync.Mutex
	journal     map[int]Applied
	executed    []string
	locked      bool
	initialized bool
	failOn      int // version that Apply should fail on, 0 for none
}

// NewInMemory constructs an empty in-memory migration store.
func NewInMemory() *InMemory {
	return &InMemory{journal: make(map[int]Applied)}
}

// FailOn makes Apply fail for the given version, for error-path tests.
func (s *InMemory) FailOn(version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn = version
}

func (s *InMemory) EnsureJournal(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return false, nil
	}
	s.initialized = true
	return true, nil
}

func (s *InMemory) Applied(ctx context.Context) (map[int]Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]Applied, len(s.journal))
	for v, a := range s.journal {
		out[v] = a
	}
	return out, nil
}

func (s *InMemory) Apply(ctx context.Context, m Migration, runID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOn != 0 && m.Version == s.failOn {
		return fmt.Errorf("migration %d: simulated failure", m.Version)
	}
	if _, ok := s.journal[m.Version]; ok {
		return fmt.Errorf("migration %d: %w", m.Version, sentinel.ErrConflict)
	}

	s.executed = append(s.executed, m.Statements...)
	s.journal[m.Version] = Applied{
		Version:     m.Version,
		Description: m.Description,
		Checksum:    m.Checksum(),
		RunID:       runID,
		AppliedAt:   time.Now(),
	}
	return nil
}

func (s *InMemory) AcquireLock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return fmt.Errorf("migration lock held by another runner: %w", sentinel.ErrUnavailable)
	}
	s.locked = true
	return nil
}

func (s *InMemory) ReleaseLock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locked {
		return fmt.Errorf("release migration lock: lock was not held")
	}
	s.locked = false
	return nil
}

// Executed returns every statement applied so far, in order.
func (s *InMemory) Executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.executed))
	copy(out, s.executed)
	return out
}

// SeedApplied journals a row directly, bypassing Apply. Tests use it to
// simulate history from earlier releases.
func (s *InMemory) SeedApplied(a Applied) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[a.Version] = a
}
