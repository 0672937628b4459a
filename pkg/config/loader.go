package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/cascadehq/cascade/pkg/config/provider"
)

// Loader resolves configuration from layered sources. Ascending
// priority: built-in defaults, the config provider (optional),
// CASCADE_-prefixed environment variables, caller overrides.
type Loader struct {
	provider  provider.Provider
	defaults  map[string]any
	overrides map[string]any
	onChange  func(*Config)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithDefaults replaces the built-in defaults layer.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(l *Loader) {
		l.defaults = defaults
	}
}

// WithOverrides sets caller overrides as dotted key paths. They take
// priority over every other source.
func WithOverrides(overrides map[string]any) LoaderOption {
	return func(l *Loader) {
		l.overrides = overrides
	}
}

// WithOnChange sets a callback invoked when config changes.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) {
		l.onChange = fn
	}
}

// NewLoader creates a Loader. The provider may be nil, in which case
// only defaults, environment, and overrides apply.
func NewLoader(p provider.Provider, opts ...LoaderOption) *Loader {
	l := &Loader{
		provider: p,
		defaults: Defaults(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, merges, and validates the configuration. Missing
// optional sources never fail; only a required key absent from all
// sources surfaces as a *ConfigError.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		slog.Warn("Failed to load env files", "error", err)
	}

	merged := deepCopy(l.defaults)

	if l.provider != nil {
		data, err := l.provider.Load(ctx)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Warn("Config source absent, continuing with defaults", "type", l.provider.Type())
		case err != nil:
			return nil, fmt.Errorf("failed to load config: %w", err)
		default:
			rawMap, err := parseBytes(data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}

			expanded, _ := ExpandEnvVarsInData(rawMap).(map[string]any)
			merged = deepMerge(merged, expanded)
		}
	}

	for key, value := range EnvOverrides() {
		setDotted(merged, key, value)
	}
	for key, value := range l.overrides {
		setDotted(merged, key, value)
	}

	cfg := &Config{raw: merged}
	if err := decodeConfig(merged, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch blocks watching the provider for changes, reloading and
// invoking the onChange callback on each change. Returns when ctx is
// cancelled or the provider does not support watching.
func (l *Loader) Watch(ctx context.Context) error {
	if l.provider == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	changes, err := l.provider.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}

	if changes == nil {
		slog.Info("Config watching not supported by provider", "type", l.provider.Type())
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}

			cfg, err := l.Load(ctx)
			if err != nil {
				slog.Error("Failed to reload config", "error", err)
				continue
			}

			slog.Info("Configuration reloaded")
			if l.onChange != nil {
				l.onChange(cfg)
			}
		}
	}
}

// Close releases resources held by the loader.
func (l *Loader) Close() error {
	if l.provider == nil {
		return nil
	}
	return l.provider.Close()
}

// Load is a convenience function that builds a provider, creates a
// loader, and loads config in one call.
func Load(ctx context.Context, opts provider.Options, lopts ...LoaderOption) (*Config, *Loader, error) {
	var p provider.Provider
	if opts.Path != "" {
		var err error
		p, err = provider.New(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create provider: %w", err)
		}
	}

	loader := NewLoader(p, lopts...)
	cfg, err := loader.Load(ctx)
	if err != nil {
		loader.Close()
		return nil, nil, err
	}

	return cfg, loader, nil
}

// parseBytes parses raw bytes into a map. YAML is primary; JSON is the
// fallback (YAML is a superset, so this rarely triggers).
func parseBytes(data []byte) (map[string]any, error) {
	var result map[string]any

	if err := yaml.Unmarshal(data, &result); err == nil {
		return result, nil
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse as YAML or JSON: %w", err)
	}

	return result, nil
}

// decodeConfig decodes a map into a Config struct using mapstructure.
func decodeConfig(input map[string]any, output *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	return nil
}

// deepMerge merges overlay onto base, recursing into nested maps.
// Overlay values win.
func deepMerge(base, overlay map[string]any) map[string]any {
	if overlay == nil {
		return base
	}
	if base == nil {
		base = make(map[string]any, len(overlay))
	}

	for key, value := range overlay {
		if overlayMap, ok := value.(map[string]any); ok {
			if baseMap, ok := base[key].(map[string]any); ok {
				base[key] = deepMerge(baseMap, overlayMap)
				continue
			}
		}
		base[key] = value
	}
	return base
}

// deepCopy copies a nested config map so merges never mutate the
// source layer.
func deepCopy(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		if m, ok := value.(map[string]any); ok {
			dst[key] = deepCopy(m)
			continue
		}
		dst[key] = value
	}
	return dst
}

// setDotted sets a value at a dotted key path, creating intermediate
// maps as needed.
func setDotted(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for i, part := range parts {
		if i == len(parts)-1 {
			m[part] = value
			return
		}

		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
}
