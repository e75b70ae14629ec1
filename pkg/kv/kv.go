// Package kv defines the key-value persistence contract the cart store
// mirrors itself into.
package kv

import (
	"context"
	"errors"
)

// Store is a minimal string key-value store.
type Store interface {
	// Get returns the value for key, or ErrNoKey when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ErrNoKey indicates the key has never been written.
var ErrNoKey = errors.New("key not found")
