// Package loadbalance picks one endpoint out of a discovered set.
//
// Three strategies are implemented:
//   - RoundRobin:     stateless services, equal-capacity endpoints
//   - WeightedRandom: heterogeneous endpoints (different CPU/memory)
//   - Rendezvous:     affinity, the same key keeps hitting the same endpoint
package loadbalance

import (
	"errors"

	"github.com/strogo/armeria/registry"
)

// ErrNoEndpoints is returned by Pick when the endpoint list is empty.
var ErrNoEndpoints = errors.New("loadbalance: no endpoints available")

// Balancer selects the target for one call. Pick runs on every call and
// must be safe for concurrent use.
type Balancer interface {
	Pick(eps []registry.Endpoint) (registry.Endpoint, error)

	// Name returns the strategy name, for logging.
	Name() string
}
