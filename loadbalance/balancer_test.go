package loadbalance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/strogo/armeria/registry"
)

var testEndpoints = []registry.Endpoint{
	{Addr: "10.0.0.1:8001", Path: "/rpc", Weight: 10, Version: "1.0"},
	{Addr: "10.0.0.2:8002", Path: "/rpc", Weight: 5, Version: "1.0"},
	{Addr: "10.0.0.3:8003", Path: "/rpc", Weight: 10, Version: "1.0"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobin{}

	results := make([]string, 3)
	for i := 0; i < 3; i++ {
		ep, err := b.Pick(testEndpoints)
		if err != nil {
			t.Fatal(err)
		}
		results[i] = ep.Addr
	}
	for i, want := range []string{"10.0.0.1:8001", "10.0.0.2:8002", "10.0.0.3:8003"} {
		if results[i] != want {
			t.Fatalf("pick %d = %s, want %s", i, results[i], want)
		}
	}

	ep, _ := b.Pick(testEndpoints)
	if ep.Addr != results[0] {
		t.Fatalf("expect wrap around to %s, got %s", results[0], ep.Addr)
	}
}

func TestEmptyEndpointList(t *testing.T) {
	for _, b := range []Balancer{&RoundRobin{}, &WeightedRandom{}, &Rendezvous{Key: "x"}} {
		_, err := b.Pick(nil)
		if !errors.Is(err, ErrNoEndpoints) {
			t.Fatalf("%s: expect ErrNoEndpoints, got %v", b.Name(), err)
		}
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandom{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		ep, err := b.Pick(testEndpoints)
		if err != nil {
			t.Fatal(err)
		}
		counts[ep.Addr]++
	}

	// Weight ratio is 10:5:10, so :8001 should land about twice as often
	// as :8002.
	ratio := float64(counts["10.0.0.1:8001"]) / float64(counts["10.0.0.2:8002"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio 8001/8002 = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomUnweighted(t *testing.T) {
	b := &WeightedRandom{}
	eps := []registry.Endpoint{
		{Addr: "10.0.0.1:8001"},
		{Addr: "10.0.0.2:8002"},
	}

	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		ep, err := b.Pick(eps)
		if err != nil {
			t.Fatal(err)
		}
		seen[ep.Addr] = true
	}
	if len(seen) != 2 {
		t.Fatalf("unweighted endpoints should both be picked, saw %v", seen)
	}
}

func TestRendezvousStable(t *testing.T) {
	b := &Rendezvous{Key: "user-123"}

	ep1, err := b.Pick(testEndpoints)
	if err != nil {
		t.Fatal(err)
	}
	ep2, _ := b.Pick(testEndpoints)
	if ep1.Addr != ep2.Addr {
		t.Fatalf("same key mapped to different endpoints: %s vs %s", ep1.Addr, ep2.Addr)
	}

	// Different keys should spread over the endpoints.
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ep, err := b.PickFor(fmt.Sprintf("key-%d", i), testEndpoints)
		if err != nil {
			t.Fatal(err)
		}
		seen[ep.Addr] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expect at least 2 different endpoints over 100 keys, got %d", len(seen))
	}
}

func TestRendezvousMinimalDisruption(t *testing.T) {
	b := &Rendezvous{}

	before := map[string]string{}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		ep, err := b.PickFor(key, testEndpoints)
		if err != nil {
			t.Fatal(err)
		}
		before[key] = ep.Addr
	}

	// Drop the first endpoint. Only the keys it owned may move.
	removed := testEndpoints[0].Addr
	remaining := testEndpoints[1:]
	for key, owner := range before {
		ep, err := b.PickFor(key, remaining)
		if err != nil {
			t.Fatal(err)
		}
		if owner != removed && ep.Addr != owner {
			t.Fatalf("key %q moved from %s to %s although its endpoint stayed", key, owner, ep.Addr)
		}
	}
}
