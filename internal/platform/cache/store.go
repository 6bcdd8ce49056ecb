package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key this application writes so a shared Redis
// instance can be flushed per concern.
const keyPrefix = "cache:"

// Store wraps a Redis client with JSON serialization and namespaced keys.
// It is an optimization layer only: callers must treat every miss or error
// as "load from the store of record".
type Store struct {
	client *redis.Client
}

// NewStore constructs a Store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func buildKey(key string) string {
	return keyPrefix + key
}

// Get loads a cached value into dest. The second return is false on a miss.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := s.client.Get(ctx, buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value under key with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, buildKey(key), raw, ttl).Err()
}

// Del removes the given keys.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = buildKey(k)
	}
	return s.client.Del(ctx, namespaced...).Err()
}

// DelAllMatching removes every key matching pattern, e.g. "user-paginated*".
func (s *Store) DelAllMatching(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, buildKey(pattern), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, buildKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// TTL returns the remaining lifetime of key.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, buildKey(key)).Result()
}
