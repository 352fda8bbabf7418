package handler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOTPStore struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewRedisOTPStore(rdb *redis.Client, timeout time.Duration) *RedisOTPStore {
	return &RedisOTPStore{rdb: rdb, timeout: timeout}
}

func (s *RedisOTPStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisOTPStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.rdb.Get(ctx, key).Result()
}

func (s *RedisOTPStore) Del(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.rdb.Del(ctx, key).Err()
}

func (s *RedisOTPStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	counter, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if counter == 1 {
		if err := s.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, err
		}
	}
	return counter, nil
}
