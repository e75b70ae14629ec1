// Package redis implements a Redis-backed key-value store.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"cartflow/pkg/kv"
)

// Store provides a Redis implementation of kv.Store. A non-zero TTL is
// applied and refreshed on every Set, so idle carts eventually expire.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis store around an existing client.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get returns the value for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", kv.ErrNoKey
	}
	return v, err
}

// Set stores the value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, s.ttl).Err()
}
