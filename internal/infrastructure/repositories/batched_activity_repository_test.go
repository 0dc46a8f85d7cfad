package repositories

import (
	"context"
	"testing"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/infrastructure/repositories/memory"
	"roomhub/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBatchedActivity_ListFlushesBuffer(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchedActivityRepository(memory.NewMemoryActivityRepository(), 100, time.Hour, zap.NewNop().Sugar())
	defer repo.Close()

	require.NoError(t, repo.Append(ctx, &domain.ActivityRecord{
		RoomID: "room-1", Kind: domain.ActivityCreated, At: time.Now(),
	}))
	require.NoError(t, repo.Append(ctx, &domain.ActivityRecord{
		RoomID: "room-1", Kind: domain.ActivityShared, At: time.Now().Add(time.Second),
	}))

	// ListRecent must observe buffered appends.
	records, err := repo.ListRecent(ctx, "room-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.ActivityShared, records[0].Kind)
}

func TestBatchedActivity_DeleteFlushesFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchedActivityRepository(memory.NewMemoryActivityRepository(), 100, time.Hour, zap.NewNop().Sugar())
	defer repo.Close()

	require.NoError(t, repo.Append(ctx, &domain.ActivityRecord{
		RoomID: "room-1", Kind: domain.ActivityCreated, At: time.Now(),
	}))
	require.NoError(t, repo.DeleteByRoom(ctx, "room-1"))

	records, err := repo.ListRecent(ctx, "room-1", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGuardedSnapshot_PassesDomainOutcomesThrough(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewMemorySnapshotRepository()
	repo := NewGuardedSnapshotRepository(inner, circuitbreaker.New(circuitbreaker.DefaultConfig()), zap.NewNop().Sugar())

	require.NoError(t, repo.Put(ctx, &domain.PublishSnapshot{
		RoomID: "room-1", Slug: "abc123def456", Version: 5,
	}))

	// Stale writes and missing slugs surface as domain errors without
	// counting against the breaker.
	err := repo.Put(ctx, &domain.PublishSnapshot{
		RoomID: "room-1", Slug: "abc123def456", Version: 5,
	})
	assert.ErrorIs(t, err, domain.ErrStaleSnapshot)

	_, err = repo.Get(ctx, "missing0slug")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)

	got, err := repo.Get(ctx, "abc123def456")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)
}
