package cache

import (
	"context"
	"sync"
	"time"
)

// cacheRecord stores one entry with its expiry.
type cacheRecord struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (r *cacheRecord) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && r.expiresAt.Before(now)
}

// MemoryStore is an in-memory implementation of Store. Expired entries
// are evicted lazily on lookup.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*cacheRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*cacheRecord),
	}
}

// Get returns a fresh entry for key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	record, exists := s.data[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}

	if record.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := s.data[key]; ok && cur.expired(time.Now()) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	return record.value, true, nil
}

// Set stores a value, overwriting any previous entry for key.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	record := &cacheRecord{value: value}
	if ttl > 0 {
		record.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.data[key] = record
	s.mu.Unlock()
	return nil
}

// Delete removes the entry for key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.data = make(map[string]*cacheRecord)
	s.mu.Unlock()
	return nil
}

// Len returns the number of records in the store (for testing).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
