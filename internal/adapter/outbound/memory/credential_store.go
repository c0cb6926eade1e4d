// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sync"
)

// CredentialStore implements outbound.CredentialStore with an in-memory map.
// Thread-safe for concurrent access. For development/testing only: nothing
// survives the process.
type CredentialStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCredentialStore creates an empty in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *CredentialStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *CredentialStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes keys from the store.
func (s *CredentialStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
