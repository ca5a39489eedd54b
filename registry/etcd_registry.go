// etcd-backed Registry.
//
// Announcements live under one key per (service key, addr):
//
//	Key:   /armeria/services/{segment}/{addr}
//	Value: JSON-encoded Endpoint
//
// where segment is the service key, or DefaultKeySegment for the default
// service. Every entry is attached to a TTL lease that the registry renews
// in the background, so an entry outlives its server by at most the TTL.
package registry

import (
	"context"
	"encoding/json"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const etcdPrefix = "/armeria/services/"

// EtcdRegistry implements Registry on an etcd v3 cluster.
type EtcdRegistry struct {
	client *clientv3.Client
	log    *zap.Logger
}

// NewEtcdRegistry connects to the given etcd endpoints. A nil logger
// disables diagnostics.
func NewEtcdRegistry(endpoints []string, logger *zap.Logger) (*EtcdRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c, log: logger}, nil
}

func (r *EtcdRegistry) key(serviceKey, addr string) string {
	return etcdPrefix + keySegment(serviceKey) + "/" + addr
}

// Register puts the endpoint under a fresh lease and starts renewing the
// lease in the background. The lease ID stays local to the call so that
// concurrent registrations through one EtcdRegistry do not race over it.
func (r *EtcdRegistry) Register(ctx context.Context, serviceKey string, ep Endpoint, ttlSeconds int64) error {
	lease, err := r.client.Grant(ctx, ttlSeconds)
	if err != nil {
		return err
	}
	val, err := json.Marshal(ep)
	if err != nil {
		return err
	}
	if _, err := r.client.Put(ctx, r.key(serviceKey, ep.Addr), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	// Renewal must outlive the Register call, so it does not run under ctx.
	// Close tears it down with the client.
	ch, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
		r.log.Debug("lease renewal stopped",
			zap.String("service_key", serviceKey), zap.String("addr", ep.Addr))
	}()
	return nil
}

// Deregister removes the announcement. Servers call it on graceful shutdown
// so clients stop seeing the endpoint before the lease would expire.
func (r *EtcdRegistry) Deregister(ctx context.Context, serviceKey string, addr string) error {
	_, err := r.client.Delete(ctx, r.key(serviceKey, addr))
	return err
}

// Discover lists the endpoints announced under the key's prefix. Malformed
// entries are skipped, not fatal.
func (r *EtcdRegistry) Discover(ctx context.Context, serviceKey string) ([]Endpoint, error) {
	resp, err := r.client.Get(ctx, etcdPrefix+keySegment(serviceKey)+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	eps := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			r.log.Warn("skipping malformed announcement",
				zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

// Watch re-reads the full list after every change under the key's prefix.
// Re-fetching is simpler than folding individual events, and the lists are
// small.
func (r *EtcdRegistry) Watch(ctx context.Context, serviceKey string) <-chan []Endpoint {
	ch := make(chan []Endpoint, 1)
	prefix := etcdPrefix + keySegment(serviceKey) + "/"

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			eps, err := r.Discover(ctx, serviceKey)
			if err != nil {
				r.log.Warn("discover after watch event failed",
					zap.String("service_key", serviceKey), zap.Error(err))
				continue
			}
			select {
			case ch <- eps:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Close stops lease renewals and releases the etcd connection.
func (r *EtcdRegistry) Close() error { return r.client.Close() }
