package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// Activity lists are capped so a chatty room cannot grow without bound.
const activityMaxLen = 500

type RedisActivityRepository struct {
	client *redis.Client
}

func NewRedisActivityRepository(client *redis.Client) ports.ActivityRepository {
	return &RedisActivityRepository{client: client}
}

func activityKey(roomID domain.RoomID) string {
	return fmt.Sprintf("roomhub:room:%s:activity", roomID)
}

func (r *RedisActivityRepository) Append(ctx context.Context, record *domain.ActivityRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal activity record: %w", err)
	}

	key := activityKey(record.RoomID)
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, activityMaxLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append activity record: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first. LPush keeps the list
// head-newest so a plain range preserves the order.
func (r *RedisActivityRepository) ListRecent(ctx context.Context, roomID domain.RoomID, limit int) ([]*domain.ActivityRecord, error) {
	if limit <= 0 {
		limit = activityMaxLen
	}

	entries, err := r.client.LRange(ctx, activityKey(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list activity records: %w", err)
	}

	records := make([]*domain.ActivityRecord, 0, len(entries))
	for _, entry := range entries {
		var record domain.ActivityRecord
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

func (r *RedisActivityRepository) DeleteByRoom(ctx context.Context, roomID domain.RoomID) error {
	if err := r.client.Del(ctx, activityKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete activity records: %w", err)
	}
	return nil
}
