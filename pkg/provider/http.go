package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cascadehq/cascade/pkg/config"
)

// HTTPCaller invokes a downstream JSON API. It classifies non-2xx
// responses into transient/permanent provider errors but performs no
// retries itself; retry policy belongs to the caller.
type HTTPCaller struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPOption configures an HTTPCaller.
type HTTPOption func(*HTTPCaller)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPCaller) {
		c.client = client
	}
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPCaller) {
		c.apiKey = key
	}
}

// NewHTTPCaller creates a JSON-over-HTTP provider client.
func NewHTTPCaller(name, baseURL string, opts ...HTTPOption) (*HTTPCaller, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required for provider %q", name)
	}

	c := &HTTPCaller{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewHTTPCallerFromConfig creates an HTTPCaller from a provider config
// entry.
func NewHTTPCallerFromConfig(name string, cfg *config.ProviderConfig) (*HTTPCaller, error) {
	opts := []HTTPOption{WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return NewHTTPCaller(name, cfg.BaseURL, opts...)
}

// Name returns the configured provider name.
func (c *HTTPCaller) Name() string {
	return c.name
}

// Call posts the request payload and decodes the JSON response.
func (c *HTTPCaller) Call(ctx context.Context, req *Request) (*Response, error) {
	body := map[string]any{
		"payload": req.Payload,
	}
	if req.Model != "" {
		body["model"] = req.Model
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &PermanentError{Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, &PermanentError{Message: "failed to build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Respect the caller's deadline and cancellation verbatim.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &TransientError{Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ClassifyStatus(resp.StatusCode, truncate(string(data), 256), parseRetryAfter(resp.Header))
	}

	var payload map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, &PermanentError{Status: resp.StatusCode, Message: "invalid JSON response", Err: err}
		}
	}

	out := &Response{Payload: payload}
	if tokens, ok := payload["tokens"].(float64); ok {
		out.Tokens = int(tokens)
	}
	return out, nil
}

// parseRetryAfter reads a Retry-After header in seconds form.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Ensure interface compliance at compile time.
var _ Caller = (*HTTPCaller)(nil)
