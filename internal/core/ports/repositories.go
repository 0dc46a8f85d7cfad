package ports

import (
	"context"
	"time"

	"roomhub/internal/core/domain"
)

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Room, error)
	// Update replaces the room record guarded by compare-and-swap on the
	// previously observed LastModified; domain.ErrConflict on mismatch.
	Update(ctx context.Context, room *domain.Room, expected time.Time) error
	Delete(ctx context.Context, id domain.RoomID) error
	List(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error)
}

type SnapshotRepository interface {
	// Put stores the snapshot as current for its slug. Writes whose version
	// is not strictly greater than the stored one fail with
	// domain.ErrStaleSnapshot, so racing publishes keep the higher version.
	Put(ctx context.Context, snapshot *domain.PublishSnapshot) error
	Get(ctx context.Context, slug string) (*domain.PublishSnapshot, error)
	Delete(ctx context.Context, slug string) error
}

type ActivityRepository interface {
	Append(ctx context.Context, record *domain.ActivityRecord) error
	ListRecent(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.ActivityRecord, error)
	DeleteByRoom(ctx context.Context, roomID domain.RoomID) error
}
