package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/pkg/cache"
	"github.com/cascadehq/cascade/pkg/metrics"
	"github.com/cascadehq/cascade/pkg/provider"
)

func TestOpsEndpoints(t *testing.T) {
	m := metrics.New()
	mgr := cache.NewManager(cache.NewMemoryStore(), time.Minute, m)
	t.Cleanup(func() { _ = mgr.Close() })

	// Warm one miss so /stats has something to say.
	mgr.Get(context.Background(), &provider.Request{Provider: "p", Model: "m"})

	srv := New(":0", m, WithCache(mgr))
	ts := httptest.NewServer(srv.httpServer.Handler)
	defer ts.Close()

	t.Run("healthz", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("stats", func(t *testing.T) {
		resp, err := ts.Client().Get(ts.URL + "/stats")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)

		var body struct {
			Cache cache.Stats `json:"cache"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, uint64(1), body.Cache.Misses)
	})
}

func TestShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", nil)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
