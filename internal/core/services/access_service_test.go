package services_test

import (
	"context"
	"testing"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Owner(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	result, err := f.accessSvc.Evaluate(context.Background(), "room-1", "owner-1")
	require.NoError(t, err)

	assert.True(t, result.IsOwner)
	assert.Equal(t, domain.PermissionEditor, result.Permission)
	assert.Equal(t, ports.ReasonOwner, result.Reason)
}

func TestEvaluate_OwnerKeepsEditorUnderHistoryLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")

	_, err := f.lifecycleSvc.LockHistory(ctx, "room-1", domain.Identity{ID: "owner-1"})
	require.NoError(t, err)

	result, err := f.accessSvc.Evaluate(ctx, "room-1", "owner-1")
	require.NoError(t, err)
	assert.True(t, result.IsOwner)
	assert.Equal(t, domain.PermissionEditor, result.Permission)
}

func TestEvaluate_VisitorGetsEffectiveLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")

	assist := domain.PermissionAssist
	_, err := f.roomSvc.UpdateRoom(ctx, "room-1", domain.RoomPatch{MaxPermission: &assist}, owner())
	require.NoError(t, err)

	result, err := f.accessSvc.Evaluate(ctx, "room-1", "visitor-1")
	require.NoError(t, err)

	assert.False(t, result.IsOwner)
	assert.Equal(t, domain.PermissionAssist, result.Permission)
	assert.Equal(t, ports.ReasonVisitor, result.Reason)
}

func TestEvaluate_VisitorClampedUnderHistoryLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createRoom(t, "room-1")

	_, err := f.lifecycleSvc.LockHistory(ctx, "room-1", domain.Identity{ID: "owner-1"})
	require.NoError(t, err)

	result, err := f.accessSvc.Evaluate(ctx, "room-1", "visitor-1")
	require.NoError(t, err)
	assert.False(t, result.IsOwner)
	assert.Equal(t, domain.PermissionAssist, result.Permission)
}

func TestEvaluate_AnonymousRequesterIsVisitor(t *testing.T) {
	f := newFixture(t)
	f.createRoom(t, "room-1")

	result, err := f.accessSvc.Evaluate(context.Background(), "room-1", "")
	require.NoError(t, err)
	assert.False(t, result.IsOwner)
	assert.Equal(t, ports.ReasonVisitor, result.Reason)
}

func TestEvaluate_MissingRoom(t *testing.T) {
	f := newFixture(t)

	_, err := f.accessSvc.Evaluate(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}
