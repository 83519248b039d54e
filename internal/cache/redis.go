package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces cache entries so a shared Redis instance can hold
// other application state.
const keyPrefix = "hydrosync:response:"

// RedisStore is an alternative cache backend for deployments that already
// run Redis. Entries have no TTL: historical windows are immutable and
// open-ended windows are refetched by the callers that own them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns the stored bytes for a URL.
func (s *RedisStore) Get(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := s.client.Get(ctx, keyPrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// Put stores bytes for a URL, overwriting any previous entry.
func (s *RedisStore) Put(ctx context.Context, url string, body []byte) error {
	return s.client.Set(ctx, keyPrefix+url, body, 0).Err()
}

// Delete removes a single entry.
func (s *RedisStore) Delete(ctx context.Context, url string) error {
	return s.client.Del(ctx, keyPrefix+url).Err()
}

// Reset removes every entry under the cache prefix.
func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Contains reports whether an entry exists.
func (s *RedisStore) Contains(ctx context.Context, url string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+url).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
