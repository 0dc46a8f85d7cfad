package services

import (
	"context"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
)

type accessService struct {
	rooms ports.RoomRepository
}

// NewAccessService builds the single entry point the HTTP boundary uses to
// answer "what can this requester do to this room right now".
func NewAccessService(rooms ports.RoomRepository) ports.AccessService {
	return &accessService{rooms: rooms}
}

// Evaluate performs exactly one room load and no other I/O. Ownership
// always yields editor-level access regardless of the history lock;
// per-action checks against locked history still go through
// domain.CanPerform.
func (s *accessService) Evaluate(ctx context.Context, id domain.RoomID, requester domain.UserID) (*ports.AccessResult, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if requester != "" && requester == room.OwnerID {
		return &ports.AccessResult{
			IsOwner:    true,
			Permission: domain.PermissionEditor,
			Reason:     ports.ReasonOwner,
		}, nil
	}

	effective := domain.EffectiveLevel(room.Permission, room.MaxPermission)
	if room.HistoryLocked {
		effective = domain.ClampToHistoryLock(effective)
	}

	return &ports.AccessResult{
		IsOwner:    false,
		Permission: effective,
		Reason:     ports.ReasonVisitor,
	}, nil
}
