package backup

import (
	"context"
	"testing"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/infrastructure/repositories/memory"
	"roomhub/pkg/backup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newArchiveService(t *testing.T) *backup.Service {
	t.Helper()
	storage, err := backup.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return backup.NewService(storage, "test")
}

func TestArchiveRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	archives := newArchiveService(t)
	log := zap.NewNop().Sugar()

	rooms := memory.NewMemoryRoomRepository()
	snapshots := memory.NewMemorySnapshotRepository()

	room := domain.NewRoom("room-1", "owner-1", "demo", time.Now())
	room.Publish = true
	room.Slug = "abc123def456"
	require.NoError(t, rooms.Create(ctx, room))
	require.NoError(t, snapshots.Put(ctx, &domain.PublishSnapshot{
		RoomID:  "room-1",
		Slug:    "abc123def456",
		Version: 7,
		Content: []byte(`{"pages":[]}`),
	}))

	archiver := NewArchiver(archives, rooms, snapshots, Config{Interval: time.Hour, Keep: 3}, log)
	require.NoError(t, archiver.RunOnce(ctx))

	// Restore into empty repositories.
	freshRooms := memory.NewMemoryRoomRepository()
	freshSnapshots := memory.NewMemorySnapshotRepository()
	restorer := NewRestorer(archives, freshRooms, freshSnapshots, log)
	require.NoError(t, restorer.RestoreLatest(ctx))

	got, err := freshRooms.Get(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", got.Slug)

	snap, err := freshSnapshots.Get(ctx, "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, int64(7), snap.Version)
}

func TestRestore_SkipsExistingRoomsAndOlderSnapshots(t *testing.T) {
	ctx := context.Background()
	archives := newArchiveService(t)
	log := zap.NewNop().Sugar()

	rooms := memory.NewMemoryRoomRepository()
	snapshots := memory.NewMemorySnapshotRepository()

	room := domain.NewRoom("room-1", "owner-1", "original", time.Now())
	room.Slug = "abc123def456"
	require.NoError(t, rooms.Create(ctx, room))
	require.NoError(t, snapshots.Put(ctx, &domain.PublishSnapshot{
		RoomID: "room-1", Slug: "abc123def456", Version: 3,
	}))

	archiver := NewArchiver(archives, rooms, snapshots, Config{Interval: time.Hour, Keep: 3}, log)
	require.NoError(t, archiver.RunOnce(ctx))

	// The live store moves on after the archive is taken.
	live, err := rooms.Get(ctx, "room-1")
	require.NoError(t, err)
	live.Name = "renamed"
	live.LastModified = live.LastModified.Add(time.Second)
	require.NoError(t, rooms.Update(ctx, live, room.LastModified))
	require.NoError(t, snapshots.Put(ctx, &domain.PublishSnapshot{
		RoomID: "room-1", Slug: "abc123def456", Version: 9,
	}))

	restorer := NewRestorer(archives, rooms, snapshots, log)
	require.NoError(t, restorer.RestoreLatest(ctx))

	got, err := rooms.Get(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	snap, err := snapshots.Get(ctx, "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, int64(9), snap.Version)
}

func TestRestoreLatest_EmptyStorage(t *testing.T) {
	archives := newArchiveService(t)
	restorer := NewRestorer(archives, memory.NewMemoryRoomRepository(), memory.NewMemorySnapshotRepository(), zap.NewNop().Sugar())
	assert.NoError(t, restorer.RestoreLatest(context.Background()))
}
