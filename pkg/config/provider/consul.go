package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/consul/api"
)

// ConsulProvider loads config from a consul KV key and watches it via
// blocking queries.
type ConsulProvider struct {
	client *api.Client
	key    string
}

// NewConsulProvider creates a provider backed by a consul KV key.
func NewConsulProvider(endpoints []string, key string) (*ConsulProvider, error) {
	cfg := api.DefaultConfig()
	if len(endpoints) > 0 {
		cfg.Address = endpoints[0]
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulProvider{
		client: client,
		key:    key,
	}, nil
}

// Type returns TypeConsul.
func (p *ConsulProvider) Type() Type {
	return TypeConsul
}

// Load reads the config key from consul.
func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, _, err := p.client.KV().Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s from consul: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("consul key %s not found", p.key)
	}
	return pair.Value, nil
}

// Watch polls the key with consul blocking queries and signals on
// index changes.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)

		var lastIndex uint64
		for {
			opts := (&api.QueryOptions{
				WaitIndex: lastIndex,
				WaitTime:  5 * time.Minute,
			}).WithContext(ctx)

			pair, meta, err := p.client.KV().Get(p.key, opts)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				slog.Warn("Consul watch error", "key", p.key, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			// First round establishes the baseline index without
			// signalling a change.
			if lastIndex == 0 || pair == nil || meta.LastIndex == lastIndex {
				lastIndex = meta.LastIndex
				continue
			}

			lastIndex = meta.LastIndex
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()

	slog.Info("Watching consul key", "key", p.key)
	return ch, nil
}

// Close releases resources.
func (p *ConsulProvider) Close() error {
	return nil
}
