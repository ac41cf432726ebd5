package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each progress record as a plain Redis string keyed
// by the store's namespaced key. Records carry no TTL; progress outlives
// any one session.
type RedisBackend struct {
	url    string
	client *redis.Client
}

// NewRedisBackend creates a Redis backend for the given connection URL,
// e.g. "redis://localhost:6379/0". No connection is made until Connect.
func NewRedisBackend(url string) *RedisBackend {
	return &RedisBackend{url: url}
}

// Connect parses the URL, creates the client and verifies the connection
// with a ping. On failure no client is retained, so the caller can fall
// back to another backend.
func (b *RedisBackend) Connect(ctx context.Context) error {
	opts, err := redis.ParseURL(b.url)
	if err != nil {
		return fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	b.client = client
	return nil
}

// Close closes the Redis client.
func (b *RedisBackend) Close(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	if err != nil {
		return fmt.Errorf("error closing Redis client: %w", err)
	}
	return nil
}

// Get returns the record stored under key, or ErrKeyNotFound.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	if b.client == nil {
		return "", ErrNotConnected
	}
	value, err := b.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read progress record: %w", err)
	}
	return value, nil
}

// Set stores value under key without expiry.
func (b *RedisBackend) Set(ctx context.Context, key string, value string) error {
	if b.client == nil {
		return ErrNotConnected
	}
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write progress record: %w", err)
	}
	return nil
}
