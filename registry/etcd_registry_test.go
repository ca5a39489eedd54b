package registry

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		ep   Endpoint
		want string
	}{
		{Endpoint{Addr: "10.0.0.1:8080", Path: "/rpc"}, "http://10.0.0.1:8080/rpc"},
		{Endpoint{Addr: "10.0.0.1:8080", Path: "rpc"}, "http://10.0.0.1:8080/rpc"},
		{Endpoint{Addr: "10.0.0.1:8080"}, "http://10.0.0.1:8080/"},
	}
	for _, c := range cases {
		if got := c.ep.URL(); got != c.want {
			t.Errorf("URL(%+v) = %q, want %q", c.ep, got, c.want)
		}
	}
}

func TestKeySegment(t *testing.T) {
	if got := keySegment(""); got != DefaultKeySegment {
		t.Fatalf("empty key maps to %q, want %q", got, DefaultKeySegment)
	}
	if got := keySegment("clock"); got != "clock" {
		t.Fatalf("keySegment(clock) = %q", got)
	}
}

func newTestRegistry(t *testing.T) *EtcdRegistry {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "localhost:2379", 200*time.Millisecond)
	if err != nil {
		t.Skip("etcd not reachable on localhost:2379")
	}
	conn.Close()

	reg, err := NewEtcdRegistry([]string{"localhost:2379"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestRegisterAndDiscover(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	ep1 := Endpoint{Addr: "127.0.0.1:8001", Path: "/rpc", Weight: 10, Version: "1.0"}
	ep2 := Endpoint{Addr: "127.0.0.1:8002", Path: "/rpc", Weight: 5, Version: "1.0"}

	if err := reg.Register(ctx, "clock", ep1, 10); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(ctx, "clock", ep2, 10); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		reg.Deregister(ctx, "clock", ep1.Addr)
		reg.Deregister(ctx, "clock", ep2.Addr)
	})

	eps, err := reg.Discover(ctx, "clock")
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 2 {
		t.Fatalf("expect 2 endpoints, got %d", len(eps))
	}

	if err := reg.Deregister(ctx, "clock", ep1.Addr); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	eps, err = reg.Discover(ctx, "clock")
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 1 {
		t.Fatalf("expect 1 endpoint after deregister, got %d", len(eps))
	}
	if eps[0].Addr != ep2.Addr {
		t.Fatalf("expect %s, got %s", ep2.Addr, eps[0].Addr)
	}
}

func TestDefaultKeyAnnouncement(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	ep := Endpoint{Addr: "127.0.0.1:8003", Path: "/rpc"}
	if err := reg.Register(ctx, "", ep, 10); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Deregister(ctx, "", ep.Addr) })

	eps, err := reg.Discover(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, got := range eps {
		if got.Addr == ep.Addr {
			found = true
		}
	}
	if !found {
		t.Fatalf("default-key announcement not discovered: %+v", eps)
	}
}

func TestWatchSeesChanges(t *testing.T) {
	reg := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := reg.Watch(ctx, "watched")
	ep := Endpoint{Addr: "127.0.0.1:8004", Path: "/rpc"}
	if err := reg.Register(ctx, "watched", ep, 10); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reg.Deregister(context.Background(), "watched", ep.Addr) })

	select {
	case eps := <-ch:
		if len(eps) != 1 || eps[0].Addr != ep.Addr {
			t.Fatalf("unexpected watch update: %+v", eps)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no watch update after register")
	}
}
