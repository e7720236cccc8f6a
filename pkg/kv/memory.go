package kv

import (
	"context"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// The zero value is ready to use.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string]string)}
}

// Load implements [Store.Load].
func (s *MemStore) Load(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.docs[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Save implements [Store.Save].
func (s *MemStore) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs == nil {
		s.docs = make(map[string]string)
	}
	s.docs[key] = value
	return nil
}

// Clear implements [Store.Clear].
func (s *MemStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, key)
	return nil
}
