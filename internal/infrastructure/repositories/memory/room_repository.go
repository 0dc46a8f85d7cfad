package memory

import (
	"context"
	"sync"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
)

type MemoryRoomRepository struct {
	rooms map[domain.RoomID]*domain.Room
	mu    sync.RWMutex
}

func NewMemoryRoomRepository() ports.RoomRepository {
	return &MemoryRoomRepository{
		rooms: make(map[domain.RoomID]*domain.Room),
	}
}

func (r *MemoryRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrRoomExists
	}

	stored := *room
	r.rooms[room.ID] = &stored
	return nil
}

func (r *MemoryRoomRepository) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	copied := *room
	return &copied, nil
}

func (r *MemoryRoomRepository) GetBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, room := range r.rooms {
		if room.Slug != "" && room.Slug == slug {
			copied := *room
			return &copied, nil
		}
	}
	return nil, domain.ErrRoomNotFound
}

// Update replaces the record only when the stored LastModified matches the
// caller's expectation, giving compare-and-swap semantics under the lock.
func (r *MemoryRoomRepository) Update(ctx context.Context, room *domain.Room, expected time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.rooms[room.ID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	if !stored.LastModified.Equal(expected) {
		return domain.ErrConflict
	}

	copied := *room
	r.rooms[room.ID] = &copied
	return nil
}

func (r *MemoryRoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[id]; !exists {
		return domain.ErrRoomNotFound
	}

	delete(r.rooms, id)
	return nil
}

func (r *MemoryRoomRepository) List(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rooms []*domain.Room
	for _, room := range r.rooms {
		if filter.Matches(room) {
			copied := *room
			rooms = append(rooms, &copied)
		}
	}

	return rooms, nil
}
