// Package registry publishes and discovers RPC endpoints.
//
// A server announces one entry per service key it serves; clients look up
// the live endpoints for a key and can watch the set for changes. The etcd
// implementation keeps announcements alive with TTL leases, so entries of
// crashed servers expire instead of lingering as ghosts.
package registry

import "context"

// DefaultKeySegment stands in for the empty (default) service key in
// storage paths, where an empty path segment would be ambiguous.
const DefaultKeySegment = "_default"

// Endpoint is one announced server for a service key.
type Endpoint struct {
	// Addr is the host:port the server listens on.
	Addr string `json:"addr"`
	// Path is where the RPC handler is mounted, e.g. "/rpc".
	Path string `json:"path"`
	// Multiplexed reports whether the server behind Addr serves several
	// keys, in which case wire method names need the "key:" prefix.
	Multiplexed bool `json:"multiplexed,omitempty"`
	// Weight biases load balancing toward bigger instances. Zero counts as 1.
	Weight int `json:"weight,omitempty"`
	// Version tags the build, for diagnostics only.
	Version string `json:"version,omitempty"`
}

// URL returns the full POST target for this endpoint.
func (e Endpoint) URL() string {
	path := e.Path
	if path == "" {
		path = "/"
	} else if path[0] != '/' {
		path = "/" + path
	}
	return "http://" + e.Addr + path
}

// Registry publishes and looks up endpoints per service key. The empty key
// names the default service, mirroring the serving side.
type Registry interface {
	// Register announces an endpoint under the given service key and keeps
	// it alive until Deregister, Close, or process death plus TTL.
	Register(ctx context.Context, serviceKey string, ep Endpoint, ttlSeconds int64) error

	// Deregister withdraws a previously announced endpoint.
	Deregister(ctx context.Context, serviceKey string, addr string) error

	// Discover returns the endpoints currently announced for a key.
	Discover(ctx context.Context, serviceKey string) ([]Endpoint, error)

	// Watch emits the full endpoint list for a key after every change.
	// The channel closes when ctx is cancelled.
	Watch(ctx context.Context, serviceKey string) <-chan []Endpoint

	// Close releases the backing connections.
	Close() error
}

func keySegment(serviceKey string) string {
	if serviceKey == "" {
		return DefaultKeySegment
	}
	return serviceKey
}
