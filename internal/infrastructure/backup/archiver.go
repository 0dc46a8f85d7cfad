// Package backup periodically archives the room directory and restores it
// on startup, which gives memory-backed deployments durability across
// restarts.
package backup

import (
	"context"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/pkg/backup"

	"go.uber.org/zap"
)

const (
	sectionRooms     = "rooms"
	sectionSnapshots = "snapshots"
)

type Config struct {
	Interval time.Duration
	Keep     int // archives retained after pruning
}

// Archiver exports rooms and their published snapshots on a timer.
type Archiver struct {
	archives  *backup.Service
	rooms     ports.RoomRepository
	snapshots ports.SnapshotRepository
	cfg       Config
	logger    *zap.SugaredLogger
	stop      chan struct{}
}

func NewArchiver(
	archives *backup.Service,
	rooms ports.RoomRepository,
	snapshots ports.SnapshotRepository,
	cfg Config,
	logger *zap.SugaredLogger,
) *Archiver {
	return &Archiver{
		archives:  archives,
		rooms:     rooms,
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

// Start blocks until Stop is called, writing an archive every interval.
// The first archive is written immediately.
func (a *Archiver) Start(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			a.runOnce(ctx)
		case <-a.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *Archiver) Stop() {
	close(a.stop)
}

// RunOnce writes a single archive and prunes old ones.
func (a *Archiver) RunOnce(ctx context.Context) error {
	rooms, err := a.rooms.List(ctx, domain.RoomFilter{})
	if err != nil {
		return err
	}

	snapshots := make(map[string]*domain.PublishSnapshot)
	for _, room := range rooms {
		if room.Slug == "" {
			continue
		}
		snap, err := a.snapshots.Get(ctx, room.Slug)
		if err != nil {
			// A bound slug without a stored snapshot is legal after
			// invalidation; anything else is logged and skipped.
			a.logger.Debugw("skipping snapshot in archive", "slug", room.Slug, "error", err)
			continue
		}
		snapshots[room.Slug] = snap
	}

	name, err := a.archives.Write(ctx, map[string]any{
		sectionRooms:     rooms,
		sectionSnapshots: snapshots,
	})
	if err != nil {
		return err
	}
	a.logger.Infow("wrote directory archive",
		"archive", name,
		"rooms", len(rooms),
		"snapshots", len(snapshots),
	)

	return a.archives.Prune(ctx, a.cfg.Keep)
}

func (a *Archiver) runOnce(ctx context.Context) {
	if err := a.RunOnce(ctx); err != nil {
		a.logger.Errorw("directory archive failed", "error", err)
	}
}
