package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by an external Redis service. Values are
// opaque blobs; expiry is enforced entirely by the server, so there is no
// lazy-expiry bookkeeping here.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTTL, ttl)
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) SetForever(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Flush(ctx context.Context) error {
	return s.client.FlushDB(ctx).Err()
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.DBSize(ctx).Result()
	return int(n), err
}
