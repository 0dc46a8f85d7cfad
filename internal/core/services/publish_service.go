package services

import (
	"context"
	"errors"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/pkg/cache"
	apperrors "roomhub/pkg/errors"
	"roomhub/pkg/retry"
	"roomhub/pkg/utils"

	"go.uber.org/zap"
)

// SlugLocker serializes slug allocation for a room. The Redis-backed
// implementation guarantees first-writer-wins across processes; the memory
// implementation covers single-process deployments and tests.
type SlugLocker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

type publishService struct {
	rooms     ports.RoomRepository
	snapshots ports.SnapshotRepository
	cache     *cache.Cache
	locks     SlugLocker
	retryCfg  retry.Config
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewPublishService(
	rooms ports.RoomRepository,
	snapshots ports.SnapshotRepository,
	snapshotCache *cache.Cache,
	locks SlugLocker,
	retryCfg retry.Config,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.PublishService {
	return &publishService{
		rooms:     rooms,
		snapshots: snapshots,
		cache:     snapshotCache,
		locks:     locks,
		retryCfg:  retryCfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// EnsureSlug returns the room's slug, allocating one on first use. A slug
// is assigned at most once per room and never reused for a different room;
// concurrent callers all observe the same resulting slug.
func (s *publishService) EnsureSlug(ctx context.Context, id domain.RoomID) (string, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if room.Slug != "" {
		return room.Slug, nil
	}

	var slug string
	err = s.locks.WithLock(ctx, "slug:"+string(id), func() error {
		room, err := s.rooms.Get(ctx, id)
		if err != nil {
			return err
		}
		if room.Slug != "" {
			slug = room.Slug
			return nil
		}

		updated := *room
		updated.Slug = utils.GenerateSlug()
		updated.LastModified = s.now()
		if err := s.rooms.Update(ctx, &updated, room.LastModified); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.metrics.RecordCASConflict()
				// A concurrent writer beat us to the record; if it assigned
				// a slug, that one wins.
				current, gerr := s.rooms.Get(ctx, id)
				if gerr != nil {
					return gerr
				}
				if current.Slug != "" {
					slug = current.Slug
					return nil
				}
			}
			return err
		}
		slug = updated.Slug
		return nil
	})
	if err != nil {
		return "", err
	}
	return slug, nil
}

// PublishSnapshot writes a new current snapshot for the room's slug with a
// strictly increasing version. The durable write must succeed for the call
// to succeed; the local cache is refreshed afterwards as an optimization,
// never as the source of availability.
func (s *publishService) PublishSnapshot(ctx context.Context, id domain.RoomID, content []byte, publisher domain.Identity) (string, int64, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if err := room.AuthorizeOwner(publisher.ID); err != nil {
		return "", 0, err
	}

	slug, err := s.EnsureSlug(ctx, id)
	if err != nil {
		return "", 0, err
	}

	version := s.now().UnixMilli()
	if current, err := s.snapshots.Get(ctx, slug); err == nil && current.Version >= version {
		version = current.Version + 1
	}

	snap := &domain.PublishSnapshot{
		RoomID:          id,
		Slug:            slug,
		Version:         version,
		Content:         content,
		PublishedBy:     publisher.ID,
		PublishedByName: publisher.Name,
		PublishedAt:     s.now(),
	}

	writeStart := time.Now()
	err = retry.Retry(ctx, s.retryCfg, func() error {
		err := s.snapshots.Put(ctx, snap)
		if errors.Is(err, domain.ErrStaleSnapshot) {
			// A racing publish won with a higher version; bump past it and
			// let the retry write ours as current.
			if current, gerr := s.snapshots.Get(ctx, slug); gerr == nil {
				snap.Version = current.Version + 1
			}
		}
		return err
	})
	if err != nil {
		return "", 0, apperrors.NewRemoteSyncError(err)
	}

	s.metrics.RecordPublish(len(content), time.Since(writeStart))
	s.cache.Set(snapshotCacheKey(slug), snap)
	return slug, snap.Version, nil
}

// Resolve reads the current snapshot for a slug. The durable store is
// always tried first; the cache serves only as a fallback when the store
// is unreachable, and durable hits refresh it opportunistically.
func (s *publishService) Resolve(ctx context.Context, slug string) (*domain.PublishSnapshot, error) {
	snap, err := s.snapshots.Get(ctx, slug)
	if err == nil {
		s.cache.Set(snapshotCacheKey(slug), snap)
		return snap, nil
	}
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return nil, err
	}

	if cached, ok := s.cache.Get(snapshotCacheKey(slug)); ok {
		s.logger.Warnw("durable store unreachable, serving cached snapshot",
			"slug", slug,
			"error", err,
		)
		return cached.(*domain.PublishSnapshot), nil
	}
	return nil, err
}

// Invalidate removes the snapshot. The slug stays bound to its room so a
// later re-publish reuses it. Removing an absent snapshot is not an error,
// and a snapshot whose room is gone may be removed by anyone.
func (s *publishService) Invalidate(ctx context.Context, slug string, actor domain.Identity) error {
	room, err := s.rooms.GetBySlug(ctx, slug)
	if err == nil {
		if err := room.AuthorizeOwner(actor.ID); err != nil {
			return err
		}
	} else if !errors.Is(err, domain.ErrRoomNotFound) {
		return err
	}

	if err := s.snapshots.Delete(ctx, slug); err != nil && !errors.Is(err, domain.ErrSnapshotNotFound) {
		return err
	}
	s.cache.Delete(snapshotCacheKey(slug))
	return nil
}

func snapshotCacheKey(slug string) string {
	return "snapshot:" + slug
}
