package memory

import (
	"context"
	"sync"

	audit "verity/internal/audit"
)

// Store is an in-memory audit.Store for tests and redis-less development.
type Store struct {
	mu     sync.Mutex
	events []audit.Event
}

// New constructs an empty in-memory audit store.
func New() *Store {
	return &Store{}
}

// Append records the event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *Store) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
