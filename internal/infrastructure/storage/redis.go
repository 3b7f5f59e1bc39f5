package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/ports"
)

// DefaultRedisKey holds the JSON snapshot.
const DefaultRedisKey = "weekly:current"

// RedisStore keeps the snapshot as a JSON string under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ ports.SnapshotStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, key), nil
}

// Save overwrites the key with no expiry.
func (s *RedisStore) Save(ctx context.Context, snapshot domain.WeeklySnapshot) error {
	payload, err := encode(snapshot)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Current returns found=false for a missing key or a value that does not decode.
func (s *RedisStore) Current(ctx context.Context) (domain.WeeklySnapshot, bool, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.WeeklySnapshot{}, false, nil
	}
	if err != nil {
		return domain.WeeklySnapshot{}, false, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	snap, ok := decode(payload)
	return snap, ok, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
