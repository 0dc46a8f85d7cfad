package domain

import "time"

// PublishSnapshot is an immutable, slug-addressed copy of a room's content,
// decoupled from live collaboration. Content is an opaque blob owned by the
// editor collaborator.
type PublishSnapshot struct {
	RoomID          RoomID    `json:"room_id"`
	Slug            string    `json:"slug"`
	Version         int64     `json:"version"`
	Content         []byte    `json:"content"`
	PublishedBy     UserID    `json:"published_by"`
	PublishedByName string    `json:"published_by_name,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
}
