package loadbalance

import (
	"math/rand"

	"github.com/strogo/armeria/registry"
)

// WeightedRandom picks endpoints with probability proportional to their
// announced weight, so bigger instances absorb more calls.
type WeightedRandom struct{}

func (b *WeightedRandom) Pick(eps []registry.Endpoint) (registry.Endpoint, error) {
	if len(eps) == 0 {
		return registry.Endpoint{}, ErrNoEndpoints
	}
	total := 0
	for _, ep := range eps {
		total += effectiveWeight(ep)
	}
	r := rand.Intn(total)
	for _, ep := range eps {
		r -= effectiveWeight(ep)
		if r < 0 {
			return ep, nil
		}
	}
	// Unreachable: the weights sum to total, so the loop settles r < 0.
	return eps[len(eps)-1], nil
}

// effectiveWeight treats unset and nonsense weights as 1, so a list of
// unweighted endpoints still balances.
func effectiveWeight(ep registry.Endpoint) int {
	if ep.Weight < 1 {
		return 1
	}
	return ep.Weight
}

func (b *WeightedRandom) Name() string { return "WeightedRandom" }
