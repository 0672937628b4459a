package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cascadehq/cascade/pkg/config"
	"github.com/cascadehq/cascade/pkg/metrics"
	"github.com/cascadehq/cascade/pkg/provider"
)

// Stats summarizes cache effectiveness.
type Stats struct {
	Hits   uint64  `json:"hits"`
	Misses uint64  `json:"misses"`
	// HitRate is hits / (hits + misses), or 0 when nothing was looked up.
	HitRate float64 `json:"hit_rate"`
}

// Manager caches provider responses keyed by request fingerprint.
//
// The manager is fail-open: backend errors are logged and treated as a
// miss on Get and a no-op on Set, so a degraded cache never blocks the
// pipeline.
type Manager struct {
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewManager wraps a store. A nil metrics sink disables instrumentation.
func NewManager(store Store, ttl time.Duration, m *metrics.Metrics) *Manager {
	return &Manager{store: store, ttl: ttl, metrics: m}
}

// NewFromConfig builds a Manager from configuration. It returns nil
// when caching is disabled; callers treat a nil manager as a pass-through.
func NewFromConfig(cfg *config.CacheConfig, m *metrics.Metrics) (*Manager, error) {
	if cfg == nil || !cfg.IsEnabled() {
		return nil, nil
	}

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.CacheBackendEtcd:
		store, err = NewEtcdStore(cfg.Endpoints, cfg.Prefix)
		if err != nil {
			return nil, err
		}
	default:
		store = NewMemoryStore()
	}

	return NewManager(store, cfg.TTL, m), nil
}

// Get looks up the cached response for a request. It returns nil on a
// miss or on any backend failure.
func (mgr *Manager) Get(ctx context.Context, req *provider.Request) *provider.Response {
	if mgr == nil {
		return nil
	}

	key := Fingerprint(req.Provider, req.Model, req.Payload)
	data, found, err := mgr.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache lookup failed, treating as miss", "key", key, "error", err)
		mgr.miss()
		return nil
	}
	if !found {
		mgr.miss()
		return nil
	}

	var resp provider.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		slog.Warn("Cache entry is corrupt, evicting", "key", key, "error", err)
		_ = mgr.store.Delete(ctx, key)
		mgr.miss()
		return nil
	}

	mgr.hits.Add(1)
	mgr.metrics.CacheHit()
	return &resp
}

// Set records a response for future lookups. Failures are logged, not
// returned.
func (mgr *Manager) Set(ctx context.Context, req *provider.Request, resp *provider.Response) {
	if mgr == nil || resp == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		slog.Warn("Failed to encode response for caching", "error", err)
		return
	}

	key := Fingerprint(req.Provider, req.Model, req.Payload)
	if err := mgr.store.Set(ctx, key, data, mgr.ttl); err != nil {
		slog.Warn("Cache store failed", "key", key, "error", err)
	}
}

// Invalidate removes the cached response for a request.
func (mgr *Manager) Invalidate(ctx context.Context, req *provider.Request) {
	if mgr == nil {
		return
	}
	key := Fingerprint(req.Provider, req.Model, req.Payload)
	if err := mgr.store.Delete(ctx, key); err != nil {
		slog.Warn("Cache invalidation failed", "key", key, "error", err)
	}
}

// Stats returns a snapshot of hit/miss counters.
func (mgr *Manager) Stats() Stats {
	if mgr == nil {
		return Stats{}
	}
	hits := mgr.hits.Load()
	misses := mgr.misses.Load()
	stats := Stats{Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Close releases the underlying store.
func (mgr *Manager) Close() error {
	if mgr == nil {
		return nil
	}
	return mgr.store.Close()
}

func (mgr *Manager) miss() {
	mgr.misses.Add(1)
	mgr.metrics.CacheMiss()
}
