package memory

import (
	"context"
	"sync"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
)

type MemorySnapshotRepository struct {
	snapshots map[string]*domain.PublishSnapshot
	mu        sync.RWMutex
}

func NewMemorySnapshotRepository() ports.SnapshotRepository {
	return &MemorySnapshotRepository{
		snapshots: make(map[string]*domain.PublishSnapshot),
	}
}

// Put keeps at most one current snapshot per slug. A write whose version is
// not strictly greater than the stored one loses the race and is rejected,
// so concurrent publishes can never interleave content.
func (r *MemorySnapshotRepository) Put(ctx context.Context, snapshot *domain.PublishSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, exists := r.snapshots[snapshot.Slug]; exists && snapshot.Version <= current.Version {
		return domain.ErrStaleSnapshot
	}

	stored := *snapshot
	r.snapshots[snapshot.Slug] = &stored
	return nil
}

func (r *MemorySnapshotRepository) Get(ctx context.Context, slug string) (*domain.PublishSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, exists := r.snapshots[slug]
	if !exists {
		return nil, domain.ErrSnapshotNotFound
	}

	copied := *snapshot
	return &copied, nil
}

func (r *MemorySnapshotRepository) Delete(ctx context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snapshots[slug]; !exists {
		return domain.ErrSnapshotNotFound
	}

	delete(r.snapshots, slug)
	return nil
}
