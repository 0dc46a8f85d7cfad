package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/pkg/backup"

	"go.uber.org/zap"
)

// Restorer loads an archive back into the repositories.
type Restorer struct {
	archives  *backup.Service
	rooms     ports.RoomRepository
	snapshots ports.SnapshotRepository
	logger    *zap.SugaredLogger
}

func NewRestorer(
	archives *backup.Service,
	rooms ports.RoomRepository,
	snapshots ports.SnapshotRepository,
	logger *zap.SugaredLogger,
) *Restorer {
	return &Restorer{
		archives:  archives,
		rooms:     rooms,
		snapshots: snapshots,
		logger:    logger,
	}
}

// RestoreLatest restores from the newest archive. A storage with no
// archives is not an error; there is simply nothing to do.
func (r *Restorer) RestoreLatest(ctx context.Context) error {
	name, err := r.archives.Latest(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		r.logger.Info("no directory archive to restore")
		return nil
	}
	return r.Restore(ctx, name)
}

// Restore loads the named archive. Rooms that already exist are left
// untouched, snapshot writes losing to a higher stored version are skipped.
func (r *Restorer) Restore(ctx context.Context, name string) error {
	archive, err := r.archives.Read(ctx, name)
	if err != nil {
		return err
	}

	restoredRooms, err := r.restoreRooms(ctx, archive.Sections[sectionRooms])
	if err != nil {
		return fmt.Errorf("restore rooms: %w", err)
	}
	restoredSnaps, err := r.restoreSnapshots(ctx, archive.Sections[sectionSnapshots])
	if err != nil {
		return fmt.Errorf("restore snapshots: %w", err)
	}

	r.logger.Infow("restored directory archive",
		"archive", name,
		"rooms", restoredRooms,
		"snapshots", restoredSnaps,
	)
	return nil
}

func (r *Restorer) restoreRooms(ctx context.Context, raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var rooms []*domain.Room
	if err := json.Unmarshal(raw, &rooms); err != nil {
		return 0, err
	}

	restored := 0
	for _, room := range rooms {
		err := r.rooms.Create(ctx, room)
		if errors.Is(err, domain.ErrRoomExists) {
			continue
		}
		if err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

func (r *Restorer) restoreSnapshots(ctx context.Context, raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var snapshots map[string]*domain.PublishSnapshot
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		return 0, err
	}

	restored := 0
	for slug, snap := range snapshots {
		err := r.snapshots.Put(ctx, snap)
		if errors.Is(err, domain.ErrStaleSnapshot) {
			r.logger.Debugw("keeping newer stored snapshot", "slug", slug)
			continue
		}
		if err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}
