package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const snapshotPrefix = "roomhub:snapshot:"

type RedisSnapshotRepository struct {
	client *redis.Client
}

func NewRedisSnapshotRepository(client *redis.Client) ports.SnapshotRepository {
	return &RedisSnapshotRepository{client: client}
}

func snapshotKey(slug string) string {
	return snapshotPrefix + slug
}

// Put stores the snapshot as current for its slug inside a watched
// transaction. Racing publishes are ordered by version: a write that is not
// strictly newer than the stored snapshot fails with
// domain.ErrStaleSnapshot, so the store always keeps the higher version and
// never a blend of two payloads.
func (r *RedisSnapshotRepository) Put(ctx context.Context, snapshot *domain.PublishSnapshot) error {
	key := snapshotKey(snapshot.Slug)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get snapshot from Redis: %w", err)
		}
		if err == nil {
			var current domain.PublishSnapshot
			if uerr := json.Unmarshal([]byte(data), &current); uerr == nil {
				if snapshot.Version <= current.Version {
					return domain.ErrStaleSnapshot
				}
			}
		}

		payload, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrStaleSnapshot
	}
	return err
}

func (r *RedisSnapshotRepository) Get(ctx context.Context, slug string) (*domain.PublishSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(slug)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}

	var snapshot domain.PublishSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *RedisSnapshotRepository) Delete(ctx context.Context, slug string) error {
	deleted, err := r.client.Del(ctx, snapshotKey(slug)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot from Redis: %w", err)
	}
	if deleted == 0 {
		return domain.ErrSnapshotNotFound
	}
	return nil
}
