//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/migrate/lock"
	"verity/pkg/platform/sentinel"
	"verity/pkg/testutil/containers"
)

func TestRedisMutexExclusion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	first := lock.NewRedisMutex(rc.Client, time.Minute)
	second := lock.NewRedisMutex(rc.Client, time.Minute)

	require.NoError(t, first.Acquire(ctx))
	assert.ErrorIs(t, second.Acquire(ctx), sentinel.ErrUnavailable)

	require.NoError(t, first.Release(ctx))
	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release(ctx))
}

func TestRedisMutexOwnership(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	holder := lock.NewRedisMutex(rc.Client, time.Minute)
	intruder := lock.NewRedisMutex(rc.Client, time.Minute)

	require.NoError(t, holder.Acquire(ctx))

	// A mutex that never acquired the lock must not be able to release it.
	assert.Error(t, intruder.Release(ctx))
	require.NoError(t, holder.Release(ctx))
}

func TestRedisMutexExpires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	crashed := lock.NewRedisMutex(rc.Client, 500*time.Millisecond)
	require.NoError(t, crashed.Acquire(ctx))

	// Simulated crash: never released. The TTL frees the fleet.
	require.Eventually(t, func() bool {
		next := lock.NewRedisMutex(rc.Client, time.Minute)
		return next.Acquire(ctx) == nil
	}, 5*time.Second, 100*time.Millisecond)
}
