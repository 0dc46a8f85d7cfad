package domain

import "time"

type ActivityKind string

const (
	ActivityCreated           ActivityKind = "created"
	ActivityShared            ActivityKind = "shared"
	ActivityUnshared          ActivityKind = "unshared"
	ActivityPublished         ActivityKind = "published"
	ActivityUnpublished       ActivityKind = "unpublished"
	ActivityPlazaListed       ActivityKind = "plaza_listed"
	ActivityPlazaDelisted     ActivityKind = "plaza_delisted"
	ActivityHistoryLocked     ActivityKind = "history_locked"
	ActivityHistoryUnlocked   ActivityKind = "history_unlocked"
	ActivityPermissionChanged ActivityKind = "permission_changed"
)

// ActivityRecord is a per-room usage/audit entry. Records cascade-delete
// with their room.
type ActivityRecord struct {
	RoomID RoomID       `json:"room_id"`
	Kind   ActivityKind `json:"kind"`
	Actor  UserID       `json:"actor,omitempty"`
	Detail string       `json:"detail,omitempty"`
	At     time.Time    `json:"at"`
}
