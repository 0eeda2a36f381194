package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"warden/internal/platform/redis"
)

const keyPrefix = "warden:otp:"

// RedisStore keeps codes in Redis with a TTL. GETDEL makes consumption atomic
// across instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+email, code, ttl).Err(); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, email string) (string, error) {
	code, err := s.client.GetDel(ctx, keyPrefix+email).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume reset code: %w", err)
	}
	return code, nil
}
