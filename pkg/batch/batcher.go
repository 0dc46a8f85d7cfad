// Package batch coalesces items and hands them to a flush function in
// groups, either when the batch fills or on a timer.
package batch

import (
	"context"
	"sync"
	"time"
)

type FlushFunc[T any] func(ctx context.Context, items []T) error

type Batcher[T any] struct {
	size     int
	interval time.Duration
	flush    FlushFunc[T]

	mu      sync.Mutex
	pending []T

	kick     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewBatcher[T any](size int, interval time.Duration, flush FlushFunc[T]) *Batcher[T] {
	b := &Batcher[T]{
		size:     size,
		interval: interval,
		flush:    flush,
		pending:  make([]T, 0, size),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	go b.run()
	return b
}

// Add queues an item. A full batch is flushed asynchronously.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	b.pending = append(b.pending, item)
	full := len(b.pending) >= b.size
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// Flush hands all pending items to the flush function immediately.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	items := b.pending
	b.pending = make([]T, 0, b.size)
	b.mu.Unlock()

	return b.flush(ctx, items)
}

func (b *Batcher[T]) run() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = b.Flush(context.Background())
		case <-b.kick:
			_ = b.Flush(context.Background())
		case <-b.stop:
			_ = b.Flush(context.Background())
			return
		}
	}
}

// Stop flushes remaining items and shuts the batcher down.
func (b *Batcher[T]) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
	})
}

func (b *Batcher[T]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
