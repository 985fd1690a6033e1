// Package storage owns the buffers line operators write into.
package storage

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when no buffer is stored under a key.
var ErrNotFound = errors.New("buffer not found")

// MemoryStore keeps allocated buffers in memory keyed by name. Allocating an
// existing key replaces its buffer. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	buffers map[string][]byte
	limit   int
}

// NewMemoryStore creates a store. A positive limit rejects allocations
// larger than limit bytes.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		buffers: make(map[string][]byte),
		limit:   limit,
	}
}

// Allocate returns a zeroed buffer of exactly size bytes stored under key.
func (s *MemoryStore) Allocate(key string, size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.Newf("invalid allocation size %d for %q", size, key)
	}
	if s.limit > 0 && size > s.limit {
		return nil, errors.Newf("allocation of %d bytes for %q exceeds limit %d", size, key, s.limit)
	}
	buf := make([]byte, size)

	s.mu.Lock()
	s.buffers[key] = buf
	s.mu.Unlock()
	return buf, nil
}

// Get returns the buffer stored under key, terminator included.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.buffers[key]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "key %q", key)
	}
	return buf, nil
}

// Content returns the buffer under key without its trailing zero byte.
func (s *MemoryStore) Content(key string) ([]byte, error) {
	buf, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	if n := len(buf); n > 0 && buf[n-1] == 0 {
		return buf[:n-1], nil
	}
	return buf, nil
}

// Release drops the buffer under key.
func (s *MemoryStore) Release(key string) {
	s.mu.Lock()
	delete(s.buffers, key)
	s.mu.Unlock()
}

// Keys returns all stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.buffers))
	for k := range s.buffers {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored buffers.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers)
}
