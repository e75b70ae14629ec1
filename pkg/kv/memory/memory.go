// Package memory implements an in-memory key-value store.
package memory

import (
	"context"
	"sync"

	"cartflow/pkg/kv"
)

// Store provides an in-memory implementation of kv.Store.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the value for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", kv.ErrNoKey
	}
	return v, nil
}

// Set stores the value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
