// Package config loads the runtime configuration from layered sources:
// built-in defaults, a config source (file or remote KV), environment
// variables, and explicit caller overrides, in ascending priority.
package config

import (
	"strings"
	"time"
)

// Config is the resolved runtime configuration.
type Config struct {
	Logging      LoggingConfig             `yaml:"logging"`
	Metrics      MetricsConfig             `yaml:"metrics"`
	RateLimit    RateLimitConfig           `yaml:"rate_limit"`
	Retry        RetryConfig               `yaml:"retry"`
	Cache        CacheConfig               `yaml:"cache"`
	Providers    map[string]ProviderConfig `yaml:"providers"`
	Orchestrator OrchestratorConfig        `yaml:"orchestrator"`
	Pipeline     PipelineConfig            `yaml:"pipeline"`

	// raw is the merged key space all layers resolved into.
	raw map[string]any
}

// LoggingConfig configures the slog setup.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// MetricsConfig configures the prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RateLimitConfig configures the shared downstream rate limiter.
type RateLimitConfig struct {
	Enabled  *bool         `yaml:"enabled"`
	Policy   string        `yaml:"policy"`
	Capacity int64         `yaml:"capacity"`
	Refill   time.Duration `yaml:"refill"`
	Window   time.Duration `yaml:"window"`
}

// IsEnabled returns whether rate limiting is enabled (default true).
func (c *RateLimitConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RetryConfig configures retry behavior for downstream calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	Jitter      *bool         `yaml:"jitter"`
}

// HasJitter returns whether retry delays are jittered (default true).
func (c *RetryConfig) HasJitter() bool {
	return c.Jitter == nil || *c.Jitter
}

// Supported cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendEtcd   = "etcd"
)

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled   *bool         `yaml:"enabled"`
	Backend   string        `yaml:"backend"`
	Endpoints []string      `yaml:"endpoints"`
	Prefix    string        `yaml:"prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// IsEnabled returns whether caching is enabled (default true).
func (c *CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ProviderConfig configures a downstream provider client.
type ProviderConfig struct {
	Type    string        `yaml:"type"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// OrchestratorConfig configures orchestration policy.
type OrchestratorConfig struct {
	Mode             string        `yaml:"mode"`
	FailureThreshold *float64      `yaml:"failure_threshold"`
	SubtaskTimeout   time.Duration `yaml:"subtask_timeout"`
	AbortOnFailure   bool          `yaml:"abort_on_failure"`
	MaxIterations    int           `yaml:"max_iterations"`
	Quorum           int           `yaml:"quorum"`
}

// Threshold returns the failure threshold (default 0.5).
func (c *OrchestratorConfig) Threshold() float64 {
	if c.FailureThreshold == nil {
		return 0.5
	}
	return *c.FailureThreshold
}

// PipelineConfig describes a statically decomposed task for the CLI.
type PipelineConfig struct {
	Provider string           `yaml:"provider"`
	Model    string           `yaml:"model"`
	Subtasks []map[string]any `yaml:"subtasks"`
}

// Defaults returns the built-in defaults as the lowest priority layer.
func Defaults() map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"metrics": map[string]any{
			"enabled": false,
			"addr":    ":9090",
		},
		"rate_limit": map[string]any{
			"policy":   "concurrency",
			"capacity": 8,
		},
		"retry": map[string]any{
			"max_attempts": 3,
			"base_delay":   "250ms",
			"multiplier":   2.0,
		},
		"cache": map[string]any{
			"backend": CacheBackendMemory,
			"ttl":     "1h",
		},
		"orchestrator": map[string]any{
			"mode":              "sequential",
			"failure_threshold": 0.5,
			"subtask_timeout":   "2m",
		},
	}
}

// SetDefaults fills zero fields that the defaults layer does not cover.
func (c *Config) SetDefaults() {
	if c.RateLimit.Policy == "" {
		c.RateLimit.Policy = "concurrency"
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 8
	}
	if c.RateLimit.Refill == 0 {
		c.RateLimit.Refill = 100 * time.Millisecond
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = 250 * time.Millisecond
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2.0
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheBackendMemory
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "cascade/cache/"
	}
	if c.Orchestrator.Mode == "" {
		c.Orchestrator.Mode = "sequential"
	}
	if c.Orchestrator.SubtaskTimeout == 0 {
		c.Orchestrator.SubtaskTimeout = 2 * time.Minute
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate checks the merged configuration. It returns a *ConfigError
// when a required key is absent or an enum value is invalid.
func (c *Config) Validate() error {
	switch c.RateLimit.Policy {
	case "concurrency", "token_bucket", "sliding_window":
	default:
		return NewConfigError("rate_limit.policy", "unknown policy %q", c.RateLimit.Policy)
	}
	if c.RateLimit.IsEnabled() && c.RateLimit.Capacity <= 0 {
		return NewConfigError("rate_limit.capacity", "must be positive, got %d", c.RateLimit.Capacity)
	}

	if c.Retry.MaxAttempts < 1 {
		return NewConfigError("retry.max_attempts", "must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return NewConfigError("retry.multiplier", "must be at least 1, got %g", c.Retry.Multiplier)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendEtcd:
		if len(c.Cache.Endpoints) == 0 {
			return NewConfigError("cache.endpoints", "required when backend is etcd")
		}
	default:
		return NewConfigError("cache.backend", "unknown backend %q", c.Cache.Backend)
	}

	for name, p := range c.Providers {
		if p.BaseURL == "" {
			return NewConfigError("providers."+name+".base_url", "required")
		}
	}

	switch c.Orchestrator.Mode {
	case "sequential", "conditional", "iterative", "parallel":
	default:
		return NewConfigError("orchestrator.mode", "unknown mode %q", c.Orchestrator.Mode)
	}
	if t := c.Orchestrator.Threshold(); t < 0 || t > 1 {
		return NewConfigError("orchestrator.failure_threshold", "must be in [0,1], got %g", t)
	}
	if c.Orchestrator.Mode == "iterative" && c.Orchestrator.MaxIterations < 1 {
		return NewConfigError("orchestrator.max_iterations", "must be at least 1 for iterative mode")
	}

	if len(c.Pipeline.Subtasks) > 0 {
		if c.Pipeline.Provider == "" {
			return NewConfigError("pipeline.provider", "required when pipeline subtasks are set")
		}
		if _, ok := c.Providers[c.Pipeline.Provider]; !ok {
			return NewConfigError("pipeline.provider", "provider %q is not configured", c.Pipeline.Provider)
		}
	}

	return nil
}

// Get returns the merged value at a dotted key path, or nil when the
// key is absent. Later sources silently override earlier ones.
func (c *Config) Get(key string) any {
	if c.raw == nil {
		return nil
	}

	cur := any(c.raw)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// GetOr returns the merged value at a dotted key path, or def when the
// key is absent.
func (c *Config) GetOr(key string, def any) any {
	if v := c.Get(key); v != nil {
		return v
	}
	return def
}
