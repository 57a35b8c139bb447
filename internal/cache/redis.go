package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore shares cached views and generations between site instances.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRedisStore returns a store writing keys under prefix.
func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "corpsite:cache:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, s.prefix+prefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *RedisStore) Generation(ctx context.Context, namespace string) (uint64, error) {
	generation, err := s.client.Get(ctx, s.generationKey(namespace)).Uint64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (s *RedisStore) Bump(ctx context.Context, namespace string) (uint64, error) {
	generation, err := s.client.Incr(ctx, s.generationKey(namespace)).Result()
	if err != nil {
		return 0, err
	}
	return uint64(generation), nil
}

func (s *RedisStore) generationKey(namespace string) string {
	return s.prefix + "gen:" + namespace
}
