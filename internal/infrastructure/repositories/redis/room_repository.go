package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roomhub/internal/core/domain"
	"roomhub/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	roomPrefix   = "roomhub:room:"
	slugPrefix   = "roomhub:room_slug:"
	allRoomsKey  = "roomhub:rooms:all"
	sharedSetKey = "roomhub:rooms:shared"
	pubSetKey    = "roomhub:rooms:published"
	plazaSetKey  = "roomhub:rooms:plaza"
)

type RedisRoomRepository struct {
	client *redis.Client
}

func NewRedisRoomRepository(client *redis.Client) ports.RoomRepository {
	return &RedisRoomRepository{client: client}
}

func roomKey(id domain.RoomID) string {
	return roomPrefix + string(id)
}

func slugKey(slug string) string {
	return slugPrefix + slug
}

func (r *RedisRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	ok, err := r.client.SetNX(ctx, roomKey(room.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set room in Redis: %w", err)
	}
	if !ok {
		return domain.ErrRoomExists
	}

	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, allRoomsKey, string(room.ID))
		applyIndexes(ctx, pipe, room)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index room: %w", err)
	}
	return nil
}

func (r *RedisRoomRepository) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	data, err := r.client.Get(ctx, roomKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room from Redis: %w", err)
	}

	var room domain.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

func (r *RedisRoomRepository) GetBySlug(ctx context.Context, slug string) (*domain.Room, error) {
	id, err := r.client.Get(ctx, slugKey(slug)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slug in Redis: %w", err)
	}
	return r.Get(ctx, domain.RoomID(id))
}

// Update replaces the room record transactionally: the key is watched, the
// stored LastModified is compared against the caller's expectation, and a
// concurrent write aborts the transaction with domain.ErrConflict.
func (r *RedisRoomRepository) Update(ctx context.Context, room *domain.Room, expected time.Time) error {
	key := roomKey(room.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return domain.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get room from Redis: %w", err)
		}

		var stored domain.Room
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}
		if !stored.LastModified.Equal(expected) {
			return domain.ErrConflict
		}

		payload, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("failed to marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			applyIndexes(ctx, pipe, room)
			if room.Slug != "" {
				pipe.Set(ctx, slugKey(room.Slug), string(room.ID), 0)
			}
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrConflict
	}
	return err
}

func (r *RedisRoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	room, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(id))
		pipe.SRem(ctx, allRoomsKey, string(id))
		pipe.SRem(ctx, sharedSetKey, string(id))
		pipe.SRem(ctx, pubSetKey, string(id))
		pipe.SRem(ctx, plazaSetKey, string(id))
		if room.Slug != "" {
			pipe.Del(ctx, slugKey(room.Slug))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room from Redis: %w", err)
	}
	return nil
}

func (r *RedisRoomRepository) List(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	ids, err := r.client.SMembers(ctx, indexFor(filter)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms from Redis: %w", err)
	}

	var rooms []*domain.Room
	for _, id := range ids {
		room, err := r.Get(ctx, domain.RoomID(id))
		if err != nil {
			// Skip rooms removed between the index read and the load.
			continue
		}
		if filter.Matches(room) {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

// indexFor picks the narrowest index set for a filter; the loaded rooms are
// re-checked against the full filter either way.
func indexFor(filter domain.RoomFilter) string {
	switch {
	case filter.Plaza != nil && *filter.Plaza:
		return plazaSetKey
	case filter.Publish != nil && *filter.Publish:
		return pubSetKey
	case filter.Shared != nil && *filter.Shared:
		return sharedSetKey
	}
	return allRoomsKey
}

func applyIndexes(ctx context.Context, pipe redis.Pipeliner, room *domain.Room) {
	id := string(room.ID)
	if room.Shared {
		pipe.SAdd(ctx, sharedSetKey, id)
	} else {
		pipe.SRem(ctx, sharedSetKey, id)
	}
	if room.Publish {
		pipe.SAdd(ctx, pubSetKey, id)
	} else {
		pipe.SRem(ctx, pubSetKey, id)
	}
	if room.Plaza {
		pipe.SAdd(ctx, plazaSetKey, id)
	} else {
		pipe.SRem(ctx, plazaSetKey, id)
	}
}
