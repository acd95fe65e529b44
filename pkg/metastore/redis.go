package metastore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unhoist/unhoist/pkg/observability"
)

// redisKeyPrefix namespaces entries so the store can share a database with
// other applications.
const redisKeyPrefix = "unhoist:meta:"

// RedisStore backs the metadata cache with Redis. Expiry uses Redis TTLs
// directly, so expired entries are real misses rather than lazily skipped
// files. The capacity bound is left to the server's maxmemory policy; the
// oldest-first semantics of the file store map onto an LRU/TTL policy there.
type RedisStore struct {
	client *redis.Client
	maxAge time.Duration
}

// NewRedisStore connects to addr and verifies the connection with a ping.
// maxAge 0 stores entries without expiry.
func NewRedisStore(ctx context.Context, addr string, maxAge time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{client: client, maxAge: maxAge}, nil
}

// Read returns the entry for key or a miss when Redis has expired it.
func (s *RedisStore) Read(ctx context.Context, key string) (string, bool, error) {
	text, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		observability.Store().OnMiss(ctx, "redis", key, false)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	observability.Store().OnHit(ctx, "redis", key)
	return text, true, nil
}

// Write stores text under key with the configured TTL, overwriting any prior
// value and refreshing its expiry.
func (s *RedisStore) Write(ctx context.Context, key, text string) error {
	if err := s.client.Set(ctx, redisKeyPrefix+key, text, s.maxAge).Err(); err != nil {
		return err
	}
	observability.Store().OnWrite(ctx, "redis", key, len(text))
	return nil
}

// Close releases the client connection.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
