package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/internal/core/services"
	"roomhub/internal/infrastructure/editor"
	"roomhub/internal/infrastructure/repositories/memory"
	"roomhub/pkg/cache"
	"roomhub/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingMetrics counts recorder calls so tests can assert the services
// actually drive the collector.
type countingMetrics struct {
	mu             sync.Mutex
	created        int
	deleted        int
	publishes      int
	casConflicts   int
	decodeFailures int
	transitions    map[domain.ActivityKind]int
}

func (m *countingMetrics) RecordRoomCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *countingMetrics) RecordRoomDeleted(*domain.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted++
}

func (m *countingMetrics) RecordTransition(kind domain.ActivityKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitions == nil {
		m.transitions = make(map[domain.ActivityKind]int)
	}
	m.transitions[kind]++
}

func (m *countingMetrics) RecordPublish(int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes++
}

func (m *countingMetrics) RecordCASConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casConflicts++
}

func (m *countingMetrics) RecordShareAddressDecodeFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decodeFailures++
}

func (m *countingMetrics) transitionCount(kind domain.ActivityKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[kind]
}

// fixture wires the full service stack against memory repositories.
type fixture struct {
	rooms     ports.RoomRepository
	snapshots ports.SnapshotRepository
	activity  ports.ActivityRepository
	editor    *editor.MemoryEditorSync
	metrics   *countingMetrics

	roomSvc      ports.RoomService
	lifecycleSvc ports.LifecycleService
	publishSvc   ports.PublishService
	accessSvc    ports.AccessService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := zap.NewNop().Sugar()
	rooms := memory.NewMemoryRoomRepository()
	snapshots := memory.NewMemorySnapshotRepository()
	activity := memory.NewMemoryActivityRepository()
	sync := editor.NewMemoryEditorSync()

	snapshotCache := cache.NewCache(time.Minute)
	t.Cleanup(snapshotCache.Stop)

	retryCfg := retry.DefaultConfig()
	retryCfg.InitialDelay = time.Millisecond
	retryCfg.Jitter = false

	metrics := &countingMetrics{}
	publishSvc := services.NewPublishService(rooms, snapshots, snapshotCache, memory.NewMemorySlugLocker(), retryCfg, metrics, log)

	return &fixture{
		rooms:        rooms,
		snapshots:    snapshots,
		activity:     activity,
		editor:       sync,
		metrics:      metrics,
		roomSvc:      services.NewRoomService(rooms, snapshots, activity, metrics, log),
		lifecycleSvc: services.NewLifecycleService(rooms, publishSvc, activity, sync, metrics, log),
		publishSvc:   publishSvc,
		accessSvc:    services.NewAccessService(rooms),
	}
}

func owner() domain.Identity {
	return domain.Identity{ID: "owner-1", Name: "Owner"}
}

func (f *fixture) createRoom(t *testing.T, id string) *domain.Room {
	t.Helper()
	room, err := f.roomSvc.CreateRoom(context.Background(), domain.RoomID(id), owner(), "test room")
	require.NoError(t, err)
	return room
}

func TestCreateRoom_Defaults(t *testing.T) {
	f := newFixture(t)

	room := f.createRoom(t, "room-1")

	assert.Equal(t, domain.RoomID("room-1"), room.ID)
	assert.Equal(t, domain.UserID("owner-1"), room.OwnerID)
	assert.Equal(t, domain.PermissionEditor, room.Permission)
	assert.Equal(t, domain.PermissionEditor, room.MaxPermission)
	assert.False(t, room.Shared)
	assert.False(t, room.Publish)
	assert.False(t, room.Plaza)
	assert.Empty(t, room.Slug)
}

func TestCreateRoom_GeneratesIDWhenEmpty(t *testing.T) {
	f := newFixture(t)

	room, err := f.roomSvc.CreateRoom(context.Background(), "", domain.Identity{ID: "u1"}, "untitled")
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
}

func TestCreateRoom_DuplicateID(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	_, err := f.roomSvc.CreateRoom(context.Background(), "room-1", domain.Identity{ID: "u2"}, "other")
	assert.ErrorIs(t, err, domain.ErrRoomExists)
}

func TestUpdateRoom_LoweredCeilingDragsPermissionDown(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	viewer := domain.PermissionViewer
	room, err := f.roomSvc.UpdateRoom(context.Background(), "room-1", domain.RoomPatch{
		MaxPermission: &viewer,
	}, owner())
	require.NoError(t, err)

	assert.Equal(t, domain.PermissionViewer, room.MaxPermission)
	assert.Equal(t, domain.PermissionViewer, room.Permission)
}

func TestUpdateRoom_PermissionClampedToCeiling(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	assist := domain.PermissionAssist
	_, err := f.roomSvc.UpdateRoom(context.Background(), "room-1", domain.RoomPatch{
		MaxPermission: &assist,
	}, owner())
	require.NoError(t, err)

	editorLvl := domain.PermissionEditor
	room, err := f.roomSvc.UpdateRoom(context.Background(), "room-1", domain.RoomPatch{
		Permission: &editorLvl,
	}, owner())
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionAssist, room.Permission)
}

func TestUpdateRoom_RejectsEditorWhileHistoryLocked(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	_, err := f.lifecycleSvc.LockHistory(context.Background(), "room-1", domain.Identity{ID: "owner-1"})
	require.NoError(t, err)

	editorLvl := domain.PermissionEditor
	_, err = f.roomSvc.UpdateRoom(context.Background(), "room-1", domain.RoomPatch{
		Permission: &editorLvl,
	}, owner())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateRoom_InvalidPermissionValue(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	bogus := domain.PermissionLevel("admin")
	_, err := f.roomSvc.UpdateRoom(context.Background(), "room-1", domain.RoomPatch{
		Permission: &bogus,
	}, owner())
	assert.ErrorIs(t, err, domain.ErrInvalidPermission)
}

func TestDeleteRoom_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")

	_, slug, _, err := f.lifecycleSvc.Publish(ctx, "room-1", []byte(`{"doc":1}`), domain.Identity{ID: "owner-1"})
	require.NoError(t, err)

	require.NoError(t, f.roomSvc.DeleteRoom(ctx, "room-1", owner()))

	_, err = f.roomSvc.GetRoom(ctx, "room-1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	_, err = f.snapshots.Get(ctx, slug)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	records, err := f.activity.ListRecent(ctx, "room-1", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteRoom_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.roomSvc.DeleteRoom(context.Background(), "nope", owner())
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestListRooms_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")
	f.createRoom(t, "room-2")

	_, err := f.lifecycleSvc.Share(ctx, "room-2", domain.Identity{ID: "owner-1"})
	require.NoError(t, err)

	shared := true
	rooms, err := f.roomSvc.ListRooms(ctx, domain.RoomFilter{Shared: &shared})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomID("room-2"), rooms[0].ID)

	rooms, err = f.roomSvc.ListRooms(ctx, domain.RoomFilter{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestListActivity_RequiresRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.roomSvc.ListActivity(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestListActivity_RecordsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")

	_, err := f.lifecycleSvc.Share(ctx, "room-1", domain.Identity{ID: "owner-1"})
	require.NoError(t, err)

	records, err := f.roomSvc.ListActivity(ctx, "room-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, domain.ActivityShared, records[0].Kind)
	assert.Equal(t, domain.ActivityCreated, records[1].Kind)
}

func TestUpdateRoom_NonOwnerRejected(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	viewer := domain.PermissionViewer
	_, err := f.roomSvc.UpdateRoom(context.Background(), "room-1", domain.RoomPatch{
		Permission: &viewer,
	}, domain.Identity{ID: "stranger"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Anonymous callers are non-owners too.
	_, err = f.roomSvc.UpdateRoom(context.Background(), "room-1", domain.RoomPatch{
		Permission: &viewer,
	}, domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	room, err := f.roomSvc.GetRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionEditor, room.Permission)
}

func TestDeleteRoom_NonOwnerRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")

	err := f.roomSvc.DeleteRoom(ctx, "room-1", domain.Identity{ID: "stranger"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	err = f.roomSvc.DeleteRoom(ctx, "room-1", domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.roomSvc.GetRoom(ctx, "room-1")
	require.NoError(t, err)
}

func TestOwnerlessRoom_OpenToAnyCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.roomSvc.CreateRoom(ctx, "room-1", domain.Identity{}, "dev room")
	require.NoError(t, err)

	viewer := domain.PermissionViewer
	_, err = f.roomSvc.UpdateRoom(ctx, "room-1", domain.RoomPatch{Permission: &viewer}, domain.Identity{ID: "anyone"})
	require.NoError(t, err)

	require.NoError(t, f.roomSvc.DeleteRoom(ctx, "room-1", domain.Identity{}))
}

func TestMetrics_RoomAndTransitionCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")

	_, err := f.lifecycleSvc.Share(ctx, "room-1", owner())
	require.NoError(t, err)
	_, _, _, err = f.lifecycleSvc.Publish(ctx, "room-1", []byte(`{}`), owner())
	require.NoError(t, err)

	require.NoError(t, f.roomSvc.DeleteRoom(ctx, "room-1", owner()))

	assert.Equal(t, 1, f.metrics.created)
	assert.Equal(t, 1, f.metrics.deleted)
	assert.Equal(t, 1, f.metrics.publishes)
	assert.Equal(t, 1, f.metrics.transitionCount(domain.ActivityShared))
	assert.Equal(t, 1, f.metrics.transitionCount(domain.ActivityPublished))
}
