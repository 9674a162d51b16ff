// Package memory implements an in-memory key/value store for tests and
// sessions that should not outlive the process.
package memory

import (
	"context"
	"sync"

	"github.com/sirosfoundation/go-citizen-client/internal/storage"
)

// Store implements an in-memory key/value store
type Store struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", storage.ErrClosed
	}
	value, exists := s.data[key]
	if !exists {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	s.data[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

// Len returns the number of stored keys
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
