package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-zookeeper/zk"
)

// ZookeeperProvider loads config from a zookeeper node.
type ZookeeperProvider struct {
	conn *zk.Conn
	path string
}

// NewZookeeperProvider creates a provider backed by a zookeeper node.
func NewZookeeperProvider(endpoints []string, path string) (*ZookeeperProvider, error) {
	if len(endpoints) == 0 {
		endpoints = []string{"localhost:2181"}
	}

	conn, _, err := zk.Connect(endpoints, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	return &ZookeeperProvider{
		conn: conn,
		path: path,
	}, nil
}

// Type returns TypeZookeeper.
func (p *ZookeeperProvider) Type() Type {
	return TypeZookeeper
}

// Load reads the config node from zookeeper.
func (p *ZookeeperProvider) Load(ctx context.Context) ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zookeeper node %s: %w", p.path, err)
	}
	return data, nil
}

// Watch re-arms a zookeeper data watch on the node and signals on
// changes.
func (p *ZookeeperProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)

		for {
			_, _, eventCh, err := p.conn.GetW(p.path)
			if err != nil {
				slog.Warn("Zookeeper watch error", "path", p.path, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				switch event.Type {
				case zk.EventNodeDataChanged:
					select {
					case ch <- struct{}{}:
					default:
					}
				case zk.EventNodeDeleted, zk.EventNotWatching:
					slog.Warn("Zookeeper watch lost", "path", p.path, "event", event.Type)
					return
				}
			}
		}
	}()

	slog.Info("Watching zookeeper node", "path", p.path)
	return ch, nil
}

// Close closes the zookeeper connection.
func (p *ZookeeperProvider) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
