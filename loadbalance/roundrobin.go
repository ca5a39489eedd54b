package loadbalance

import (
	"sync/atomic"

	"github.com/strogo/armeria/registry"
)

// RoundRobin cycles through the endpoints in order. An atomic counter keeps
// Pick lock-free under concurrent callers.
type RoundRobin struct {
	counter atomic.Int64
}

func (b *RoundRobin) Pick(eps []registry.Endpoint) (registry.Endpoint, error) {
	if len(eps) == 0 {
		return registry.Endpoint{}, ErrNoEndpoints
	}
	idx := (b.counter.Add(1) - 1) % int64(len(eps))
	return eps[idx], nil
}

func (b *RoundRobin) Name() string { return "RoundRobin" }
