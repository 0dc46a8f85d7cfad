package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/pkg/utils"

	"go.uber.org/zap"
)

// casAttempts bounds the reload-and-retry loop around compare-and-swap
// room updates.
const casAttempts = 3

type roomService struct {
	rooms     ports.RoomRepository
	snapshots ports.SnapshotRepository
	activity  ports.ActivityRepository
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewRoomService(
	rooms ports.RoomRepository,
	snapshots ports.SnapshotRepository,
	activity ports.ActivityRepository,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.RoomService {
	return &roomService{
		rooms:     rooms,
		snapshots: snapshots,
		activity:  activity,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, id domain.RoomID, owner domain.Identity, name string) (*domain.Room, error) {
	if id == "" {
		id = domain.RoomID(utils.GenerateRoomID())
	}

	room := domain.NewRoom(id, owner.ID, name, s.now())
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	s.metrics.RecordRoomCreated()
	s.record(ctx, room.ID, domain.ActivityCreated, owner.ID, "")
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return s.rooms.Get(ctx, id)
}

func (s *roomService) UpdateRoom(ctx context.Context, id domain.RoomID, patch domain.RoomPatch, actor domain.Identity) (*domain.Room, error) {
	var permissionChanged bool

	room, err := applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		if patch.Name != nil {
			r.Name = *patch.Name
		}
		if patch.MaxPermission != nil {
			if !patch.MaxPermission.Valid() {
				return domain.ErrInvalidPermission
			}
			r.MaxPermission = *patch.MaxPermission
			// A lowered ceiling drags the default permission down with it.
			r.Permission = domain.EffectiveLevel(r.Permission, r.MaxPermission)
		}
		if patch.Permission != nil {
			if !patch.Permission.Valid() {
				return domain.ErrInvalidPermission
			}
			if r.HistoryLocked && *patch.Permission == domain.PermissionEditor {
				return domain.ErrInvalidTransition
			}
			requested := domain.EffectiveLevel(*patch.Permission, r.MaxPermission)
			if requested != r.Permission {
				permissionChanged = true
			}
			r.Permission = requested
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if permissionChanged {
		s.record(ctx, id, domain.ActivityPermissionChanged, actor.ID, string(room.Permission))
	}
	return room, nil
}

// DeleteRoom cascades to the snapshot and activity records. Every
// sub-delete is attempted even when one fails, and the room record delete
// proceeds regardless; a missing sub-record is not an error.
func (s *roomService) DeleteRoom(ctx context.Context, id domain.RoomID, actor domain.Identity) error {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := room.AuthorizeOwner(actor.ID); err != nil {
		return err
	}

	if room.Slug != "" {
		if err := s.snapshots.Delete(ctx, room.Slug); err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
			s.logger.Warnw("cascade snapshot delete failed",
				"room_id", id,
				"slug", room.Slug,
				"error", err,
			)
		}
	}

	if err := s.activity.DeleteByRoom(ctx, id); err != nil {
		s.logger.Warnw("cascade activity delete failed",
			"room_id", id,
			"error", err,
		)
	}

	if err := s.rooms.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	s.metrics.RecordRoomDeleted(room)
	return nil
}

func (s *roomService) ListRooms(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	return s.rooms.List(ctx, filter)
}

func (s *roomService) ListActivity(ctx context.Context, id domain.RoomID, limit int) ([]*domain.ActivityRecord, error) {
	if _, err := s.rooms.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.activity.ListRecent(ctx, id, limit)
}

func (s *roomService) record(ctx context.Context, id domain.RoomID, kind domain.ActivityKind, actor domain.UserID, detail string) {
	rec := &domain.ActivityRecord{
		RoomID: id,
		Kind:   kind,
		Actor:  actor,
		Detail: detail,
		At:     s.now(),
	}
	if err := s.activity.Append(ctx, rec); err != nil {
		s.logger.Warnw("failed to append activity record",
			"room_id", id,
			"kind", kind,
			"error", err,
		)
	}
}

// applyGuarded performs a read-modify-write against the room repository,
// guarded by compare-and-swap on LastModified and re-checking the room
// invariants before every write. Conflicting writers reload and retry a
// bounded number of times.
func applyGuarded(
	ctx context.Context,
	rooms ports.RoomRepository,
	id domain.RoomID,
	now func() time.Time,
	metrics ports.MetricsRecorder,
	mutate func(*domain.Room) error,
) (*domain.Room, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		room, err := rooms.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		updated := *room
		if err := mutate(&updated); err != nil {
			return nil, err
		}
		if err := updated.CheckInvariants(); err != nil {
			return nil, err
		}

		expected := room.LastModified
		updated.LastModified = now()
		err = rooms.Update(ctx, &updated, expected)
		if err == nil {
			return &updated, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		metrics.RecordCASConflict()
	}
	return nil, domain.ErrConflict
}
