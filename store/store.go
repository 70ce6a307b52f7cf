// Package store provides the client-local durable storage the dashboard
// keeps between runs: the token pair and the security-log snapshot. This is
// advisory state, not a security boundary.
package store

import "sync"

// Store is a flat string key/value store with durable semantics left to the
// implementation. Every write persists the full snapshot.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// MemStore keeps values in memory. Used in tests and dev mode.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

// Get retrieves a value by key.
func (s *MemStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores or replaces a value.
func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes a key if present.
func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
