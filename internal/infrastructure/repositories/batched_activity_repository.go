package repositories

import (
	"context"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"
	"roomhub/pkg/batch"

	"go.uber.org/zap"
)

// BatchedActivityRepository buffers activity appends and writes them to the
// underlying store in groups. Activity records are best-effort audit data,
// so appends are acknowledged before they are durable. Reads and cascade
// deletes flush the buffer first to stay read-your-writes.
type BatchedActivityRepository struct {
	inner   ports.ActivityRepository
	batcher *batch.Batcher[*domain.ActivityRecord]
}

func NewBatchedActivityRepository(inner ports.ActivityRepository, size int, interval time.Duration, logger *zap.SugaredLogger) *BatchedActivityRepository {
	r := &BatchedActivityRepository{inner: inner}
	r.batcher = batch.NewBatcher(size, interval, func(ctx context.Context, records []*domain.ActivityRecord) error {
		for _, record := range records {
			if err := inner.Append(ctx, record); err != nil {
				logger.Warnw("dropping buffered activity records",
					"error", err,
					"room_id", record.RoomID,
				)
				return err
			}
		}
		return nil
	})
	return r
}

func (r *BatchedActivityRepository) Append(ctx context.Context, record *domain.ActivityRecord) error {
	r.batcher.Add(record)
	return nil
}

func (r *BatchedActivityRepository) ListRecent(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.ActivityRecord, error) {
	if err := r.batcher.Flush(ctx); err != nil {
		return nil, err
	}
	return r.inner.ListRecent(ctx, roomID, limit)
}

func (r *BatchedActivityRepository) DeleteByRoom(ctx context.Context, roomID domain.RoomID) error {
	if err := r.batcher.Flush(ctx); err != nil {
		return err
	}
	return r.inner.DeleteByRoom(ctx, roomID)
}

// Close flushes any buffered records and stops the background flusher.
func (r *BatchedActivityRepository) Close() {
	r.batcher.Stop()
}
