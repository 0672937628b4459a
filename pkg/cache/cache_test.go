package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/pkg/config"
	"github.com/cascadehq/cascade/pkg/provider"
)

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a := map[string]any{
		"prompt": "summarize",
		"params": map[string]any{"temperature": 0.2, "max_tokens": 512},
	}
	b := map[string]any{
		"params": map[string]any{"max_tokens": 512, "temperature": 0.2},
		"prompt": "summarize",
	}

	assert.Equal(t, Fingerprint("openai", "gpt-4", a), Fingerprint("openai", "gpt-4", b))
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	base := map[string]any{"prompt": "summarize"}

	assert.NotEqual(t,
		Fingerprint("openai", "gpt-4", base),
		Fingerprint("openai", "gpt-4", map[string]any{"prompt": "translate"}))
	assert.NotEqual(t,
		Fingerprint("openai", "gpt-4", base),
		Fingerprint("openai", "gpt-3.5", base))
	assert.NotEqual(t,
		Fingerprint("openai", "gpt-4", base),
		Fingerprint("anthropic", "gpt-4", base))
}

func TestFingerprintNormalizesIntegralFloats(t *testing.T) {
	// JSON decoding yields float64 for all numbers; a literal int in a
	// caller-built map must hash the same as its decoded form.
	asInt := map[string]any{"max_tokens": 512}
	asFloat := map[string]any{"max_tokens": float64(512)}

	assert.Equal(t,
		Fingerprint("openai", "gpt-4", asInt),
		Fingerprint("openai", "gpt-4", asFloat))
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 30*time.Millisecond))

	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("v"), val)

	time.Sleep(50 * time.Millisecond)

	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Len(), "expired entry should be evicted on lookup")
}

func TestMemoryStoreNoTTLDoesNotExpire(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestManagerGetAfterSet(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), time.Minute, nil)
	ctx := context.Background()

	req := &provider.Request{
		Provider: "openai",
		Model:    "gpt-4",
		Payload:  map[string]any{"prompt": "hello"},
	}

	assert.Nil(t, mgr.Get(ctx, req), "cold cache should miss")

	resp := &provider.Response{Payload: map[string]any{"text": "hi"}, Tokens: 3}
	mgr.Set(ctx, req, resp)

	got := mgr.Get(ctx, req)
	require.NotNil(t, got)
	assert.Equal(t, "hi", got.Payload["text"])
	assert.Equal(t, 3, got.Tokens)

	stats := mgr.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestManagerInvalidate(t *testing.T) {
	mgr := NewManager(NewMemoryStore(), time.Minute, nil)
	ctx := context.Background()

	req := &provider.Request{Provider: "p", Model: "m", Payload: map[string]any{"q": "x"}}
	mgr.Set(ctx, req, &provider.Response{Payload: map[string]any{"text": "y"}})
	require.NotNil(t, mgr.Get(ctx, req))

	mgr.Invalidate(ctx, req)
	assert.Nil(t, mgr.Get(ctx, req))
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("backend down") }
func (failingStore) Close() error                         { return nil }

func TestManagerFailsOpen(t *testing.T) {
	mgr := NewManager(failingStore{}, time.Minute, nil)
	ctx := context.Background()

	req := &provider.Request{Provider: "p", Model: "m", Payload: map[string]any{"q": "x"}}

	// Neither operation may surface an error to the caller.
	assert.Nil(t, mgr.Get(ctx, req))
	mgr.Set(ctx, req, &provider.Response{Payload: map[string]any{"text": "y"}})
	assert.Nil(t, mgr.Get(ctx, req))

	stats := mgr.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)
}

func TestManagerNilIsPassThrough(t *testing.T) {
	var mgr *Manager
	ctx := context.Background()

	req := &provider.Request{Provider: "p", Model: "m"}
	assert.Nil(t, mgr.Get(ctx, req))
	mgr.Set(ctx, req, &provider.Response{})
	assert.Equal(t, Stats{}, mgr.Stats())
	assert.NoError(t, mgr.Close())
}

func TestNewFromConfig(t *testing.T) {
	disabled := false

	t.Run("disabled returns nil", func(t *testing.T) {
		mgr, err := NewFromConfig(&config.CacheConfig{Enabled: &disabled}, nil)
		require.NoError(t, err)
		assert.Nil(t, mgr)
	})

	t.Run("memory backend", func(t *testing.T) {
		mgr, err := NewFromConfig(&config.CacheConfig{
			Backend: config.CacheBackendMemory,
			TTL:     time.Minute,
		}, nil)
		require.NoError(t, err)
		require.NotNil(t, mgr)
		defer mgr.Close()

		_, ok := mgr.store.(*MemoryStore)
		assert.True(t, ok)
	})

	t.Run("etcd backend requires endpoints", func(t *testing.T) {
		_, err := NewFromConfig(&config.CacheConfig{
			Backend: config.CacheBackendEtcd,
		}, nil)
		assert.Error(t, err)
	})
}
