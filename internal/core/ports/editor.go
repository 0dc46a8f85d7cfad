package ports

import (
	"context"

	"roomhub/internal/core/domain"
)

// Collaborator is a participant reported by the sync engine.
type Collaborator struct {
	UserID domain.UserID `json:"user_id"`
	Name   string        `json:"name"`
}

// EditorSync is the whiteboard editor's synchronization engine. The engine
// itself is an external collaborator; this service only reads document
// snapshots from it, pushes snapshots into it, and toggles read-only mode
// when history is locked.
type EditorSync interface {
	GetDocument(ctx context.Context, roomID domain.RoomID) ([]byte, error)
	ApplyDocument(ctx context.Context, roomID domain.RoomID, content []byte) error
	ListCollaborators(ctx context.Context, roomID domain.RoomID) ([]Collaborator, error)
	SetReadOnly(ctx context.Context, roomID domain.RoomID, readOnly bool) error
}
