package credstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisDialTimeout = 5 * time.Second

// RedisStore keeps the pair under two keys, written together in a MULTI
// transaction.
type RedisStore struct {
	client     redis.Cmdable
	closer     func() error
	accessKey  string
	refreshKey string
}

// OpenRedis connects to redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: redisDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	store := NewRedisStore(client, opts.Prefix)
	store.closer = client.Close
	return store, nil
}

// NewRedisStore wraps an existing client. prefix namespaces the two keys.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{
		client:     client,
		accessKey:  prefix + AccessKey,
		refreshKey: prefix + RefreshKey,
	}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context) (Pair, error) {
	values, err := s.client.MGet(ctx, s.accessKey, s.refreshKey).Result()
	if err != nil {
		return Pair{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	var pair Pair
	if v, ok := values[0].(string); ok {
		pair.Access = v
	}
	if v, ok := values[1].(string); ok {
		pair.Refresh = v
	}
	if pair.Access == "" && pair.Refresh == "" {
		return Pair{}, ErrNotFound
	}
	return pair, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, pair Pair) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey, pair.Access, 0)
		pipe.Set(ctx, s.refreshKey, pair.Refresh, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey, s.refreshKey).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
