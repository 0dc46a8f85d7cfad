package services

import (
	"context"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"

	"go.uber.org/zap"
)

type lifecycleService struct {
	rooms    ports.RoomRepository
	publish  ports.PublishService
	activity ports.ActivityRepository
	editor   ports.EditorSync
	metrics  ports.MetricsRecorder
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewLifecycleService(
	rooms ports.RoomRepository,
	publish ports.PublishService,
	activity ports.ActivityRepository,
	editor ports.EditorSync,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.LifecycleService {
	return &lifecycleService{
		rooms:    rooms,
		publish:  publish,
		activity: activity,
		editor:   editor,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *lifecycleService) Share(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error) {
	room, err := applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		r.Shared = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, id, domain.ActivityShared, actor.ID, "")
	return room, nil
}

// Unshare turns off link collaboration; publish and plaza state are left
// untouched.
func (s *lifecycleService) Unshare(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error) {
	room, err := applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		r.Shared = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, id, domain.ActivityUnshared, actor.ID, "")
	return room, nil
}

// Publish writes a new snapshot version and flips the publish flag. When no
// content is supplied the current document is pulled from the sync engine.
// The snapshot write must fully succeed against the durable store before
// the room is marked published.
func (s *lifecycleService) Publish(ctx context.Context, id domain.RoomID, content []byte, actor domain.Identity) (*domain.Room, string, int64, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return nil, "", 0, err
	}
	if err := room.AuthorizeOwner(actor.ID); err != nil {
		return nil, "", 0, err
	}

	if len(content) == 0 {
		doc, err := s.editor.GetDocument(ctx, id)
		if err != nil {
			return nil, "", 0, err
		}
		content = doc
	}

	slug, version, err := s.publish.PublishSnapshot(ctx, id, content, actor)
	if err != nil {
		return nil, "", 0, err
	}

	room, err = applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		r.Publish = true
		return nil
	})
	if err != nil {
		return nil, "", 0, err
	}

	s.record(ctx, id, domain.ActivityPublished, actor.ID, slug)
	return room, slug, version, nil
}

// Unpublish clears the publish flag. A plaza listing cannot outlive its
// snapshot, so plaza is forced off in the same atomic update. The snapshot
// itself is kept; the slug simply becomes unreachable through the room.
func (s *lifecycleService) Unpublish(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error) {
	var delisted bool
	room, err := applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		delisted = r.Plaza
		r.Publish = false
		r.Plaza = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, id, domain.ActivityUnpublished, actor.ID, "")
	if delisted {
		s.record(ctx, id, domain.ActivityPlazaDelisted, actor.ID, "forced by unpublish")
	}
	return room, nil
}

func (s *lifecycleService) SetPlaza(ctx context.Context, id domain.RoomID, listed bool, actor domain.Identity) (*domain.Room, error) {
	room, err := applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		if listed && !r.Publish {
			return domain.ErrInvalidTransition
		}
		r.Plaza = listed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if listed {
		s.record(ctx, id, domain.ActivityPlazaListed, actor.ID, "")
	} else {
		s.record(ctx, id, domain.ActivityPlazaDelisted, actor.ID, "")
	}
	return room, nil
}

// LockHistory freezes pre-lock content. Editor-level access is incompatible
// with a locked history, so a current editor default permission is
// downgraded to assist inside the same update.
func (s *lifecycleService) LockHistory(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error) {
	room, err := applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		r.HistoryLocked = true
		r.HistoryLockTimestamp = s.now()
		r.HistoryLockedBy = actor.ID
		r.HistoryLockedByName = actor.Name
		r.Permission = domain.ClampToHistoryLock(r.Permission)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.editor.SetReadOnly(ctx, id, true); err != nil {
		s.logger.Warnw("editor read-only toggle failed after history lock",
			"room_id", id,
			"error", err,
		)
	}

	s.record(ctx, id, domain.ActivityHistoryLocked, actor.ID, actor.Name)
	return room, nil
}

// UnlockHistory clears the lock fields. A permission downgraded by
// LockHistory is NOT restored; the owner must re-grant editor explicitly.
func (s *lifecycleService) UnlockHistory(ctx context.Context, id domain.RoomID, actor domain.Identity) (*domain.Room, error) {
	room, err := applyGuarded(ctx, s.rooms, id, s.now, s.metrics, func(r *domain.Room) error {
		if err := r.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
		r.HistoryLocked = false
		r.HistoryLockTimestamp = time.Time{}
		r.HistoryLockedBy = ""
		r.HistoryLockedByName = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.editor.SetReadOnly(ctx, id, false); err != nil {
		s.logger.Warnw("editor read-only toggle failed after history unlock",
			"room_id", id,
			"error", err,
		)
	}

	s.record(ctx, id, domain.ActivityHistoryUnlocked, actor.ID, "")
	return room, nil
}

func (s *lifecycleService) record(ctx context.Context, id domain.RoomID, kind domain.ActivityKind, actor domain.UserID, detail string) {
	s.metrics.RecordTransition(kind)

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
