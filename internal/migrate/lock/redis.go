// Package lock provides a Redis-backed mutex for migration runs that span
// service instances. It complements (never replaces) the Postgres advisory
// lock: Redis guards the fleet, the advisory lock guards the database.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"verity/pkg/platform/sentinel"
)

const lockKey = "verity:migration:lock"

// releaseScript deletes the lock only when the caller still owns it, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisMutex is a TTL-bounded mutex on a shared Redis instance.
type RedisMutex struct {
	client *redis.Client
	ttl    time.Duration
	token  string
}

// NewRedisMutex constructs a mutex with the given TTL. The TTL bounds how
// long a crashed runner can block the fleet.
func NewRedisMutex(client *redis.Client, ttl time.Duration) *RedisMutex {
	return &RedisMutex{
		client: client,
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

// Acquire takes the mutex. Returns sentinel.ErrUnavailable (wrapped) when
// another instance holds it.
func (m *RedisMutex) Acquire(ctx context.Context) error {
	ok, err := m.client.SetNX(ctx, lockKey, m.token, m.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire redis migration lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("migration lock held by another instance: %w", sentinel.ErrUnavailable)
	}
	return nil
}

// Release drops the mutex if this instance still owns it.
func (m *RedisMutex) Release(ctx context.Context) error {
	released, err := releaseScript.Run(ctx, m.client, []string{lockKey}, m.token).Int()
	if err != nil {
		return fmt.Errorf("release redis migration lock: %w", err)
	}
	if released == 0 {
		return fmt.Errorf("release redis migration lock: lock was not held")
	}
	return nil
}
