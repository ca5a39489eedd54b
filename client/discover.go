package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/loadbalance"
	"github.com/strogo/armeria/message"
	"github.com/strogo/armeria/registry"
)

// Discovering looks servers up in a registry before every call and spreads
// the calls with a balancer. Per-endpoint clients are cached, so sequence
// numbering and warm connections survive across calls to the same server.
type Discovering struct {
	reg registry.Registry
	bal loadbalance.Balancer
	f   format.Format

	mu      sync.Mutex
	clients map[string]*Client // keyed by endpoint URL
}

// NewDiscovering wires a registry and a balancer into a calling client.
func NewDiscovering(reg registry.Registry, bal loadbalance.Balancer, f format.Format) (*Discovering, error) {
	if reg == nil || bal == nil {
		return nil, errors.New("client: registry and balancer are required")
	}
	if !f.Valid() {
		return nil, fmt.Errorf("client: invalid format %v", f)
	}
	return &Discovering{reg: reg, bal: bal, f: f, clients: make(map[string]*Client)}, nil
}

// Call discovers the endpoints announced for serviceKey, picks one, and
// invokes method on it. The wire name carries the "key:" prefix only when
// the chosen endpoint announced itself as multiplexed; a sole-service
// endpoint takes bare names whatever key it is announced under.
func (d *Discovering) Call(ctx context.Context, serviceKey, method string, args ...message.Value) (message.Value, error) {
	eps, err := d.reg.Discover(ctx, serviceKey)
	if err != nil {
		return message.Value{}, err
	}
	ep, err := d.bal.Pick(eps)
	if err != nil {
		return message.Value{}, fmt.Errorf("client: no endpoint for service key %q: %w", serviceKey, err)
	}
	c, err := d.clientFor(ep)
	if err != nil {
		return message.Value{}, err
	}

	wire := method
	if serviceKey != "" && ep.Multiplexed {
		wire = serviceKey + ":" + method
	}
	return c.Call(ctx, wire, args...)
}

func (d *Discovering) clientFor(ep registry.Endpoint) (*Client, error) {
	url := ep.URL()
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.clients[url]; ok {
		return c, nil
	}
	c, err := New(url, d.f)
	if err != nil {
		return nil, err
	}
	d.clients[url] = c
	return c, nil
}
