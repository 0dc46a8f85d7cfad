package ports

import (
	"context"

	"roomhub/internal/core/domain"
)

// RoomService is the persistence-facing room directory.
type RoomService interface {
	CreateRoom(ctx context.Context, id domain.RoomID, owner domain.Identity, name string) (*domain.Room, error)
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	// UpdateRoom and DeleteRoom are owner-only; a non-owner actor fails
	// with domain.ErrUnauthorized.
	UpdateRoom(ctx context.Context, id domain.RoomID, patch domain.RoomPatch, actor domain.Identity) (*domain.Room, error)
	// DeleteRoom cascades to the room's snapshot and activity records;
	// every sub-delete is attempted and the room delete proceeds regardless.
	DeleteRoom(ctx context.Context, id domain.RoomID, actor domain.Identity) error
	ListRooms(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error)
	ListActivity(ctx context.Context, id domain.RoomID, limit int) ([]*domain.ActivityRecord, error)
}

// LifecycleService validates and applies room visibility transitions.
type LifecycleService interface {
	Share(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error)
	Unshare(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error)
	Publish(ctx context.Context, id domain.RoomID, content []byte, actor domain.Identity) (*domain.Room, string, int64, error)
	Unpublish(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error)
	SetPlaza(ctx context.Context, id domain.RoomID, listed bool, actor domain.Identity) (*domain.Room, error)
	LockHistory(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error)
	UnlockHistory(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error)
}

// PublishService manages slug-addressed snapshot versions.
type PublishService interface {
	EnsureSlug(ctx context.Context, id domain.RoomID) (string, error)
	PublishSnapshot(ctx context.Context, id domain.RoomID, content []byte, publisher domain.Identity) (string, int64, error)
	Resolve(ctx context.Context, slug string) (*domain.PublishSnapshot, error)
	Invalidate(ctx context.Context, slug string, actor domain.Identity) error
}

// AccessResult answers "what can this requester do to this room right now".
type AccessResult struct {
	IsOwner    bool                   `json:"is_owner"`
	Permission domain.PermissionLevel `json:"permission"`
	Reason     AccessReason           `json:"reason"`
}

type AccessReason string

const (
	ReasonOwner   AccessReason = "owner"
	ReasonVisitor AccessReason = "visitor"
)

type AccessService interface {
	Evaluate(ctx context.Context, id domain.RoomID, requester domain.UserID) (*AccessResult, error)
}
