package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"location-reconciler/internal/models"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys.
const DefaultRedisPrefix = "county:"

// RedisCountyStore shares the county cache between processes.
type RedisCountyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCountyStore wraps an existing client.
func NewRedisCountyStore(client *redis.Client, prefix string) *RedisCountyStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCountyStore{client: client, prefix: prefix}
}

// OpenRedisCountyStore parses a redis:// URL and checks the connection.
func OpenRedisCountyStore(ctx context.Context, redisURL, prefix string) (*RedisCountyStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("repository: failed to connect to redis: %w", err)
	}
	return NewRedisCountyStore(client, prefix), nil
}

func (s *RedisCountyStore) Get(ctx context.Context, key string) (models.CountyCacheEntry, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CountyCacheEntry{}, false, nil
	}
	if err != nil {
		return models.CountyCacheEntry{}, false, fmt.Errorf("repository: failed to read county cache: %w", err)
	}

	var entry models.CountyCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.CountyCacheEntry{}, false, fmt.Errorf("repository: failed to decode county cache: %w", err)
	}
	entry.Key = key
	return entry, true, nil
}

func (s *RedisCountyStore) Set(ctx context.Context, entry models.CountyCacheEntry) error {
	entry.CreatedAt = createdAtOrNow(entry.CreatedAt)
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("repository: failed to encode county cache: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+entry.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("repository: failed to store county cache: %w", err)
	}
	return nil
}

// Clear deletes every key under the store prefix.
func (s *RedisCountyStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 500 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("repository: failed to clear county cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("repository: failed to scan county cache: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("repository: failed to clear county cache: %w", err)
		}
	}
	return nil
}

// ImportEntries writes entries through a pipeline.
func (s *RedisCountyStore) ImportEntries(ctx context.Context, entries []models.CountyCacheEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	pipe := s.client.Pipeline()
	for _, e := range entries {
		e.CreatedAt = createdAtOrNow(e.CreatedAt)
		raw, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("repository: failed to encode %s: %w", e.Key, err)
		}
		pipe.Set(ctx, s.prefix+e.Key, raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("repository: failed to import county cache: %w", err)
	}
	return int64(len(entries)), nil
}

func (s *RedisCountyStore) Close() error {
	return s.client.Close()
}
