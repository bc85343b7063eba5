package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// redisPrefix namespaces depscout entries in a shared Redis instance.
const redisPrefix = "depscout:cache:"

// RedisStore is a Redis-backed store for multi-instance deployments.
// Expiration is delegated to Redis native TTLs, so SweepExpired has
// nothing to reclaim and always reports zero.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at addr and verifies the
// connection with a ping.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cannot connect to redis at %s", addr)
	}
	return &RedisStore{client: client}, nil
}

// Get retrieves the payload for key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache get %s", key)
	}
	return payload, true, nil
}

// Set upserts the entry with a native Redis TTL. A non-positive ttl is
// stored as a minimal expiration so the entry dies immediately.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	if err := s.client.Set(ctx, redisPrefix+key, payload, ttl).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache set %s", key)
	}
	return nil
}

// Remove deletes a single entry. Absent keys are not an error.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisPrefix+key).Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache remove %s", key)
	}
	return nil
}

// SweepExpired is a no-op: Redis evicts expired keys itself.
func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}

// Clear removes every depscout entry, leaving other keys in the
// instance untouched.
func (s *RedisStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisPrefix+"*", 100).Result()
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache clear scan")
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache clear delete")
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Count returns the number of depscout entries. Redis never reports
// expired-but-present entries since eviction is native.
func (s *RedisStore) Count(ctx context.Context) (int, int, error) {
	var total int
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisPrefix+"*", 100).Result()
		if err != nil {
			return 0, 0, apperrors.Wrap(apperrors.ErrCodeStorage, err, "cache count scan")
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, 0, nil
		}
	}
}

// Close releases the client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store and the diagnostics interfaces.
var (
	_ Store   = (*RedisStore)(nil)
	_ Counter = (*RedisStore)(nil)
	_ Clearer = (*RedisStore)(nil)
)
