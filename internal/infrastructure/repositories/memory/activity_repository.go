package memory

import (
	"context"
	"sync"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
)

type MemoryActivityRepository struct {
	records map[domain.RoomID][]*domain.ActivityRecord
	mu      sync.RWMutex
}

func NewMemoryActivityRepository() ports.ActivityRepository {
	return &MemoryActivityRepository{
		records: make(map[domain.RoomID][]*domain.ActivityRecord),
	}
}

func (r *MemoryActivityRepository) Append(ctx context.Context, record *domain.ActivityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *record
	r.records[record.RoomID] = append(r.records[record.RoomID], &stored)
	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *MemoryActivityRepository) ListRecent(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.ActivityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.records[roomID]
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}

	out := make([]*domain.ActivityRecord, 0, limit)
	for i := len(records) - 1; i >= len(records)-limit; i-- {
		copied := *records[i]
		out = append(out, &copied)
	}
	return out, nil
}

// DeleteByRoom removes all records for a room. A room with no records is
// not an error (cascade deletes tolerate missing sub-tables).
func (r *MemoryActivityRepository) DeleteByRoom(ctx context.Context, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, roomID)
	return nil
}
