// Package buildcontext provides the shared configuration value passed to
// every plugin invocation. The same Context interface is satisfied on both
// sides of the worker boundary: on the orchestrating side by a map-backed
// Store, on the worker side by an RPC-backed proxy (see pkg/transfer).
package buildcontext

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Context is the read-mostly key/value environment shared across a build.
// Implementations must be safe for concurrent reads from multiple workers.
type Context interface {
	// Get returns the value bound to key, and whether it was present.
	Get(key string) (any, bool)
	// Keys returns all bound keys in sorted order.
	Keys() []string
}

// Store is the orchestrator-side Context implementation. Values are set
// before a build starts; during a build, plugins treat the store as
// effectively read-only.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewStore creates a store seeded with the given values.
func NewStore(values map[string]any) *Store {
	s := &Store{values: make(map[string]any, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Get returns the value bound to key
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys returns all bound keys in sorted order
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set binds a value. Intended for setup between builds; plugins extend the
// context, they do not overwrite concurrently during a build.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// GenerateRunID creates a new unique build run ID
func GenerateRunID() string {
	return "run_" + uuid.New().String()
}

// GenerateRequestID creates a new unique worker callback request ID
func GenerateRequestID() string {
	return "req_" + uuid.New().String()
}
