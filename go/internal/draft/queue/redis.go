package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "draft:queue:"

// RedisStore persists queues in redis, one JSON value per user, so a
// queue survives process restarts and is shared across instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load implements Store. A missing key is an empty queue.
func (s *RedisStore) Load(ctx context.Context, userID string) ([]string, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load queue from redis: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse queue from redis: %w", err)
	}
	return ids, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, userID string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save queue to redis: %w", err)
	}
	return nil
}
