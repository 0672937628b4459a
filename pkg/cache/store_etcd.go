package cache

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdStore persists cache entries in etcd, using leases for TTL
// expiry. All keys are placed under a configurable prefix so multiple
// deployments can share a cluster.
type EtcdStore struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdStore connects to the given etcd endpoints.
func NewEtcdStore(endpoints []string, prefix string) (*EtcdStore, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("etcd store requires at least one endpoint")
	}
	if prefix == "" {
		prefix = "cascade/cache/"
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdStore{client: client, prefix: prefix}, nil
}

func (s *EtcdStore) key(k string) string {
	return s.prefix + k
}

// Get fetches the entry for key. Expiry is handled server-side by the
// lease attached at Set time.
func (s *EtcdStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		return nil, false, fmt.Errorf("etcd get failed: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

// Set stores a value. A positive ttl attaches a lease so etcd expires
// the key on its own.
func (s *EtcdStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var opts []clientv3.OpOption
	if ttl > 0 {
		seconds := int64(ttl / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		lease, err := s.client.Grant(ctx, seconds)
		if err != nil {
			return fmt.Errorf("etcd lease grant failed: %w", err)
		}
		opts = append(opts, clientv3.WithLease(lease.ID))
	}

	if _, err := s.client.Put(ctx, s.key(key), string(value), opts...); err != nil {
		return fmt.Errorf("etcd put failed: %w", err)
	}
	return nil
}

// Delete removes the entry for key.
func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Delete(ctx, s.key(key)); err != nil {
		return fmt.Errorf("etcd delete failed: %w", err)
	}
	return nil
}

// Close releases the etcd client.
func (s *EtcdStore) Close() error {
	return s.client.Close()
}
