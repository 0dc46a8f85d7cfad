// Package distributed provides Redis-backed coordination primitives.
package distributed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const acquirePollInterval = 100 * time.Millisecond

var ErrNotHeld = errors.New("lock not held by this holder")

// unlockScript deletes the key only while it still carries this holder's
// token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock is a single-holder Redis lock with automatic renewal while held.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	done   chan struct{}
}

func newLock(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		token:  newToken(),
		ttl:    ttl,
		done:   make(chan struct{}),
	}
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Lock blocks until the lock is acquired, with a default 30s deadline.
func (l *Lock) Lock(ctx context.Context) error {
	return l.LockWithTimeout(ctx, 30*time.Second)
}

// LockWithTimeout polls SET NX until the lock is acquired or the timeout
// passes. On success a renewal goroutine keeps the key alive until Unlock.
func (l *Lock) LockWithTimeout(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		acquired, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", l.key, err)
		}
		if acquired {
			go l.renew(ctx)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lock %s: acquisition timed out", l.key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// TryLock attempts a single acquisition without blocking.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", l.key, err)
	}
	if acquired {
		go l.renew(ctx)
	}
	return acquired, nil
}

// Unlock stops renewal and releases the lock if this holder still owns it.
func (l *Lock) Unlock(ctx context.Context) error {
	close(l.done)

	deleted, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if deleted == 0 {
		return ErrNotHeld
	}
	return nil
}

func (l *Lock) renew(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			current, err := l.client.Get(ctx, l.key).Result()
			if err != nil || current != l.token {
				return
			}
			l.client.Expire(ctx, l.key, l.ttl)
		case <-l.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// LockManager builds locks under a shared key prefix.
type LockManager struct {
	client *redis.Client
	prefix string
}

func NewLockManager(client *redis.Client, prefix string) *LockManager {
	return &LockManager{client: client, prefix: prefix}
}

func (m *LockManager) AcquireLock(key string, ttl time.Duration) *Lock {
	return newLock(m.client, m.prefix+key, ttl)
}
