package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// NewInMemoryStore returns an ObjectStore holding objects in memory, for
// tests and local development without an object store.
func NewInMemoryStore(bucket string) *InMemoryStore {
	return &InMemoryStore{
		bucket:  bucket,
		objects: make(map[string][]byte),
	}
}

// InMemoryStore implements ObjectStore over a map.
type InMemoryStore struct {
	bucket string

	mu      sync.RWMutex
	objects map[string][]byte
}

// Save stores the payload under the key and returns its public URL.
func (s *InMemoryStore) Save(_ context.Context, key string, r io.Reader) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("memory storage: empty key")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("memory storage read %s: %w", key, err)
	}

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	return s.PublicURL(key), nil
}

// PublicURL constructs a stable URL for the key.
func (s *InMemoryStore) PublicURL(key string) string {
	return fmt.Sprintf("memory://%s/%s", s.bucket, strings.TrimLeft(key, "/"))
}

// Has reports whether an object exists under the key. Useful for tests.
func (s *InMemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

// Len reports the number of stored objects. Useful for tests.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
