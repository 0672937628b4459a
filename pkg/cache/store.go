// Package cache memoizes expensive provider calls keyed by a request
// fingerprint.
//
// The Manager fails open: a backend outage is treated as a cache miss
// and never propagates to the caller.
package cache

import (
	"context"
	"time"
)

// Store is the persistence layer for cache entries.
//
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// Get returns the value for key and whether a fresh entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the entry for key, if any.
	Delete(ctx context.Context, key string) error

	// Close closes the store and releases resources.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*EtcdStore)(nil)
)
