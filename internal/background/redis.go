package background

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"multascan/internal/config"
	"multascan/internal/logging"
)

const (
	redisTaskKeyPrefix = "multascan:task:"
	redisTaskIndexKey  = "multascan:tasks"

	// Tasks expire from Redis on their own; Cleanup only trims the index
	redisTaskTTL = 24 * time.Hour
)

// RedisTaskStore implements TaskStore on Redis so task state survives
// restarts and is shared between replicas. Only task lifecycle state lives
// here; lookup results are never cached beyond their task entry.
type RedisTaskStore struct {
	client *redis.Client
	logger logging.Logger
}

// NewRedisTaskStore creates a Redis-backed task store
func NewRedisTaskStore(cfg *config.Config) (*RedisTaskStore, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}

	store := &RedisTaskStore{
		client: redis.NewClient(opts),
		logger: logging.GetGlobalLogger().WithField("component", "redis_task_store"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return store, nil
}

// Close closes the Redis connection
func (s *RedisTaskStore) Close() error {
	return s.client.Close()
}

func (s *RedisTaskStore) key(processID string) string {
	return redisTaskKeyPrefix + processID
}

// Store stores a task result
func (s *RedisTaskStore) Store(ctx context.Context, result *TaskResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}

	if err := s.client.Set(ctx, s.key(result.ProcessID), payload, redisTaskTTL).Err(); err != nil {
		return fmt.Errorf("failed to store task result: %w", err)
	}
	if err := s.client.ZAdd(ctx, redisTaskIndexKey, redis.Z{
		Score:  float64(result.CreatedAt.Unix()),
		Member: result.ProcessID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index task result: %w", err)
	}
	return nil
}

// Get retrieves a task result by process ID
func (s *RedisTaskStore) Get(ctx context.Context, processID string) (*TaskResult, error) {
	payload, err := s.client.Get(ctx, s.key(processID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task result: %w", err)
	}

	var result TaskResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task result: %w", err)
	}
	return &result, nil
}

// Update updates a task result, preserving the remaining TTL
func (s *RedisTaskStore) Update(ctx context.Context, result *TaskResult) error {
	exists, err := s.client.Exists(ctx, s.key(result.ProcessID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check task existence: %w", err)
	}
	if exists == 0 {
		return ErrTaskNotFound
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(result.ProcessID), payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update task result: %w", err)
	}
	return nil
}

// Delete removes a task result
func (s *RedisTaskStore) Delete(ctx context.Context, processID string) error {
	deleted, err := s.client.Del(ctx, s.key(processID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete task result: %w", err)
	}
	if deleted == 0 {
		return ErrTaskNotFound
	}
	s.client.ZRem(ctx, redisTaskIndexKey, processID)
	return nil
}

// Cleanup trims index entries older than maxAge; the task keys themselves
// expire via TTL
func (s *RedisTaskStore) Cleanup(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge).Unix()
	if err := s.client.ZRemRangeByScore(ctx, redisTaskIndexKey, "-inf",
		fmt.Sprintf("%d", cutoff)).Err(); err != nil {
		return fmt.Errorf("failed to trim task index: %w", err)
	}
	return nil
}

// List returns all task results still present in the store
func (s *RedisTaskStore) List(ctx context.Context) ([]*TaskResult, error) {
	processIDs, err := s.client.ZRange(ctx, redisTaskIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list task index: %w", err)
	}

	results := make([]*TaskResult, 0, len(processIDs))
	for _, processID := range processIDs {
		result, err := s.Get(ctx, processID)
		if err != nil {
			// Expired keys linger in the index until the next cleanup
			if errors.Is(err, ErrTaskNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
