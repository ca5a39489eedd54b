// Package test exercises the full stack end to end: client → HTTP transport
// → negotiation → codec → dispatch → reflection invoke, and back out.
package test

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/strogo/armeria/client"
	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/loadbalance"
	"github.com/strogo/armeria/message"
	"github.com/strogo/armeria/middleware"
	"github.com/strogo/armeria/registry"
	"github.com/strogo/armeria/server"
	"github.com/strogo/armeria/service"
)

type Arith struct{}

func (a *Arith) Add(x, y int64) int64 { return x + y }

func (a *Arith) Multiply(x, y int64) int64 { return x * y }

type Timer struct{}

func (tm *Timer) After(ctx context.Context, ms int64, comp *service.Completion) {
	go func() {
		t := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer t.Stop()
		select {
		case <-t.C:
			comp.Succeed(message.Int(ms))
		case <-comp.Cancelled():
		}
	}()
}

func startServer(t testing.TB, mws ...middleware.Middleware) *httptest.Server {
	t.Helper()
	b := service.NewBuilder()
	if err := b.Register("", &Arith{}); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("timer", &Timer{}); err != nil {
		t.Fatal(err)
	}
	reg, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	s, err := server.New(reg, server.Config{Middlewares: mws})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func endpointOf(srv *httptest.Server, multiplexed bool) registry.Endpoint {
	return registry.Endpoint{
		Addr:        strings.TrimPrefix(srv.URL, "http://"),
		Path:        "/",
		Multiplexed: multiplexed,
	}
}

func TestFullStackAllFormats(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()

	for _, f := range format.All() {
		c, err := client.New(srv.URL, f)
		if err != nil {
			t.Fatal(err)
		}

		got, err := c.Call(ctx, "add", message.Int(3), message.Int(5))
		if err != nil {
			t.Fatalf("%v add: %v", f, err)
		}
		if !got.Equal(message.Int(8)) {
			t.Fatalf("%v add: expect 8, got %v", f, got)
		}

		got, err = c.Call(ctx, "multiply", message.Int(4), message.Int(6))
		if err != nil {
			t.Fatalf("%v multiply: %v", f, err)
		}
		if !got.Equal(message.Int(24)) {
			t.Fatalf("%v multiply: expect 24, got %v", f, got)
		}

		// Async service behind the multiplex key, same wire formats.
		got, err = c.Call(ctx, "timer:after", message.Int(3))
		if err != nil {
			t.Fatalf("%v timer:after: %v", f, err)
		}
		if !got.Equal(message.Int(3)) {
			t.Fatalf("%v timer:after: expect 3, got %v", f, got)
		}
	}
}

func TestFullStackWithMiddleware(t *testing.T) {
	srv := startServer(t,
		middleware.Recovery(zap.NewNop()),
		middleware.Logging(zap.NewNop()),
		middleware.Timeout(2*time.Second),
	)
	c, err := client.New(srv.URL, format.JSON)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Call(context.Background(), "add", message.Int(19), message.Int(23))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(message.Int(42)) {
		t.Fatalf("expect 42, got %v", got)
	}
}

// staticRegistry serves a fixed endpoint table for discovery tests that do
// not need etcd.
type staticRegistry struct {
	eps map[string][]registry.Endpoint
}

func (r *staticRegistry) Register(ctx context.Context, key string, ep registry.Endpoint, ttl int64) error {
	r.eps[key] = append(r.eps[key], ep)
	return nil
}

func (r *staticRegistry) Deregister(ctx context.Context, key, addr string) error {
	eps := r.eps[key]
	for i, ep := range eps {
		if ep.Addr == addr {
			r.eps[key] = append(eps[:i], eps[i+1:]...)
			break
		}
	}
	return nil
}

func (r *staticRegistry) Discover(ctx context.Context, key string) ([]registry.Endpoint, error) {
	return r.eps[key], nil
}

func (r *staticRegistry) Watch(ctx context.Context, key string) <-chan []registry.Endpoint {
	ch := make(chan []registry.Endpoint)
	close(ch)
	return ch
}

func (r *staticRegistry) Close() error { return nil }

func TestMultiServerRoundRobin(t *testing.T) {
	srv1 := startServer(t)
	srv2 := startServer(t)

	reg := &staticRegistry{eps: map[string][]registry.Endpoint{
		"": {endpointOf(srv1, true), endpointOf(srv2, true)},
	}}
	d, err := client.NewDiscovering(reg, &loadbalance.RoundRobin{}, format.Compact)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 10; i++ {
		got, err := d.Call(context.Background(), "", "add",
			message.Int(int64(i)), message.Int(int64(i*10)))
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		want := int64(i + i*10)
		if !got.Equal(message.Int(want)) {
			t.Fatalf("request %d: expect %d, got %v", i, want, got)
		}
	}
}

func TestFullIntegrationWithEtcd(t *testing.T) {
	conn, err := net.DialTimeout("tcp", "127.0.0.1:2379", 200*time.Millisecond)
	if err != nil {
		t.Skip("etcd not reachable on 127.0.0.1:2379")
	}
	conn.Close()

	reg, err := registry.NewEtcdRegistry([]string{"127.0.0.1:2379"}, nil)
	if err != nil {
		t.Fatalf("failed to connect etcd: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	srv1 := startServer(t)
	srv2 := startServer(t)
	ctx := context.Background()

	ep1 := endpointOf(srv1, true)
	ep2 := endpointOf(srv2, true)
	if err := reg.Register(ctx, "timer", ep1, 10); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if err := reg.Register(ctx, "timer", ep2, 10); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	t.Cleanup(func() {
		reg.Deregister(ctx, "timer", ep1.Addr)
		reg.Deregister(ctx, "timer", ep2.Addr)
	})

	d, err := client.NewDiscovering(reg, &loadbalance.RoundRobin{}, format.Binary)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		got, err := d.Call(ctx, "timer", "after", message.Int(1))
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if !got.Equal(message.Int(1)) {
			t.Fatalf("request %d: got %v", i, got)
		}
	}
}
