package memory

import (
	"context"
	"sync"

	"roomhub/internal/core/services"
)

// MemorySlugLocker serializes slug allocation within a single process with
// per-key mutexes.
type MemorySlugLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMemorySlugLocker() services.SlugLocker {
	return &MemorySlugLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *MemorySlugLocker) WithLock(ctx context.Context, key string, fn func() error) error {
	l.mu.Lock()
	keyLock, exists := l.locks[key]
	if !exists {
		keyLock = &sync.Mutex{}
		l.locks[key] = keyLock
	}
	l.mu.Unlock()

	keyLock.Lock()
	defer keyLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}
