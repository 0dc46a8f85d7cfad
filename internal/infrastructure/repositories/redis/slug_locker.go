package redis

import (
	"context"
	"time"

	"roomhub/internal/core/services"
	"roomhub/pkg/distributed"

	"github.com/redis/go-redis/v9"
)

const (
	slugLockTTL     = 10 * time.Second
	slugLockTimeout = 5 * time.Second
)

// RedisSlugLocker serializes slug assignment across instances using the
// shared distributed lock. The lock TTL is a liveness bound only; slug
// correctness is enforced by the CAS update on the room record.
type RedisSlugLocker struct {
	locks *distributed.LockManager
}

func NewRedisSlugLocker(client *redis.Client) services.SlugLocker {
	return &RedisSlugLocker{
		locks: distributed.NewLockManager(client, "roomhub:lock:"),
	}
}

func (l *RedisSlugLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	lock := l.locks.AcquireLock(key, slugLockTTL)
	if err := lock.LockWithTimeout(ctx, slugLockTimeout); err != nil {
		return err
	}
	defer lock.Unlock(ctx)

	return fn()
}
