package loadbalance

import (
	"hash/crc32"

	"github.com/strogo/armeria/registry"
)

// Rendezvous implements highest-random-weight hashing: every endpoint is
// scored against an affinity key and the best score wins. Unlike a hash
// ring it carries no state, so endpoint lists straight out of discovery
// work as-is, and when the list changes only the keys owned by the changed
// endpoints move. Weights do not participate in the scoring.
type Rendezvous struct {
	// Key is the affinity identity scored against the endpoints, such as
	// a session or tenant id. An empty key still picks deterministically.
	Key string
}

func (b *Rendezvous) Pick(eps []registry.Endpoint) (registry.Endpoint, error) {
	return b.PickFor(b.Key, eps)
}

// PickFor scores eps against an explicit key, for callers whose affinity
// varies per call.
func (b *Rendezvous) PickFor(key string, eps []registry.Endpoint) (registry.Endpoint, error) {
	if len(eps) == 0 {
		return registry.Endpoint{}, ErrNoEndpoints
	}
	best := 0
	var bestScore uint32
	for i, ep := range eps {
		score := crc32.ChecksumIEEE([]byte(key + "@" + ep.Addr))
		if i == 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return eps[best], nil
}

func (b *Rendezvous) Name() string { return "Rendezvous" }
