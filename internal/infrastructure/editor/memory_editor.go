package editor

import (
	"context"
	"sync"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
)

// MemoryEditorSync is a single-process stand-in for the real sync engine.
// It keeps the latest document per room and tracks the read-only flag so
// lifecycle transitions can be exercised without a running engine.
type MemoryEditorSync struct {
	mu            sync.RWMutex
	documents     map[domain.RoomID][]byte
	collaborators map[domain.RoomID][]ports.Collaborator
	readOnly      map[domain.RoomID]bool
}

func NewMemoryEditorSync() *MemoryEditorSync {
	return &MemoryEditorSync{
		documents:     make(map[domain.RoomID][]byte),
		collaborators: make(map[domain.RoomID][]ports.Collaborator),
		readOnly:      make(map[domain.RoomID]bool),
	}
}

func (e *MemoryEditorSync) GetDocument(ctx context.Context, roomID domain.RoomID) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.documents[roomID]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (e *MemoryEditorSync) ApplyDocument(ctx context.Context, roomID domain.RoomID, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := make([]byte, len(content))
	copy(doc, content)
	e.documents[roomID] = doc
	return nil
}

func (e *MemoryEditorSync) ListCollaborators(ctx context.Context, roomID domain.RoomID) ([]ports.Collaborator, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]ports.Collaborator, len(e.collaborators[roomID]))
	copy(out, e.collaborators[roomID])
	return out, nil
}

func (e *MemoryEditorSync) SetReadOnly(ctx context.Context, roomID domain.RoomID, readOnly bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.readOnly[roomID] = readOnly
	return nil
}

// Join registers a collaborator for a room. Used by tests and the memory
// deployment mode; the real engine reports its own participant list.
func (e *MemoryEditorSync) Join(roomID domain.RoomID, c ports.Collaborator) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.collaborators[roomID] = append(e.collaborators[roomID], c)
}

// IsReadOnly reports the last read-only state pushed for the room.
func (e *MemoryEditorSync) IsReadOnly(roomID domain.RoomID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.readOnly[roomID]
}
