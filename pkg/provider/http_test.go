package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCallerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var body map[string]any
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			assert.Equal(t, "m1", body["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"hello","tokens":12}`))
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller("llm", srv.URL, WithAPIKey("k"))
	require.NoError(t, err)

	resp, err := caller.Call(context.Background(), &Request{
		Provider: "llm",
		Model:    "m1",
		Payload:  map[string]any{"prompt": "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Payload["text"])
	assert.Equal(t, 12, resp.Tokens)
}

func TestHTTPCallerStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusRequestTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		caller, err := NewHTTPCaller("llm", srv.URL)
		require.NoError(t, err)

		_, err = caller.Call(context.Background(), &Request{Payload: map[string]any{}})
		require.Error(t, err)

		if tt.transient {
			assert.True(t, IsTransient(err), "HTTP %d should be transient", tt.status)
		} else {
			assert.True(t, IsPermanent(err), "HTTP %d should be permanent", tt.status)
		}
		srv.Close()
	}
}

func TestHTTPCallerRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller("llm", srv.URL)
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), &Request{Payload: map[string]any{}})
	require.Error(t, err)

	var te *TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 7*time.Second, te.RetryAfter)
}

func TestHTTPCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller("llm", srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = caller.Call(ctx, &Request{Payload: map[string]any{}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()

	echo := CallerFunc(func(ctx context.Context, req *Request) (*Response, error) {
		return &Response{Payload: req.Payload}, nil
	})

	require.NoError(t, reg.Register("echo", echo))
	require.Error(t, reg.Register("echo", echo), "duplicate names are rejected")

	caller, err := reg.Resolve("echo")
	require.NoError(t, err)

	resp, err := caller.Call(context.Background(), &Request{Payload: map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Payload["x"].(int))

	_, err = reg.Resolve("missing")
	assert.Error(t, err)
}
