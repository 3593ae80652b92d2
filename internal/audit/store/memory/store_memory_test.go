package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "verity/internal/audit"
)

func TestAppendAndEvents(t *testing.T) {
	store := New()

	event := audit.Event{
		ID:        uuid.New(),
		Category:  audit.Category,
		Action:    audit.ActionMigrationApplied,
		Version:   4,
		Timestamp: time.Now(),
	}
	require.NoError(t, store.Append(context.Background(), event))

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, audit.ActionMigrationApplied, events[0].Action)
}

func TestEventsReturnsCopy(t *testing.T) {
	store := New()
	require.NoError(t, store.Append(context.Background(), audit.Event{ID: uuid.New()}))

	events := store.Events()
	events[0].Notes = "tampered"

	assert.Empty(t, store.Events()[0].Notes)
}

func TestConcurrentAppend(t *testing.T) {
	store := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(context.Background(), audit.Event{ID: uuid.New()})
		}()
	}
	wg.Wait()

	assert.Len(t, store.Events(), 50)
}
