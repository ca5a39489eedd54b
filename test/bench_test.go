package test

import (
	"context"
	"testing"

	"github.com/strogo/armeria/client"
	"github.com/strogo/armeria/codec"
	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
)

// Round trip through each codec without the network, to see what the
// serialization itself costs.
func BenchmarkCodecRoundTrip(b *testing.B) {
	call := &message.Call{
		Method: "add",
		Seq:    7,
		Args:   []message.Value{message.Int(1), message.Int(2)},
	}
	for _, f := range format.All() {
		b.Run(f.String(), func(b *testing.B) {
			cdc := codec.For(f)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				data, err := cdc.Encode(call)
				if err != nil {
					b.Fatal(err)
				}
				var out message.Call
				if err := cdc.Decode(data, &out); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func setupBenchClient(b *testing.B) *client.Client {
	srv := startServer(b)
	c, err := client.New(srv.URL, format.Binary)
	if err != nil {
		b.Fatal(err)
	}
	return c
}

// One goroutine, serial calls: dominated by the HTTP round trip.
func BenchmarkSerialCall(b *testing.B) {
	c := setupBenchClient(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Call(ctx, "add", message.Int(1), message.Int(2)); err != nil {
			b.Fatal(err)
		}
	}
}

// Parallel callers sharing one client exercise the connection pool.
func BenchmarkConcurrentCall(b *testing.B) {
	c := setupBenchClient(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := c.Call(ctx, "add", message.Int(1), message.Int(2)); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
