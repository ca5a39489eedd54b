// Package client calls RPC servers over HTTP POST.
package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/strogo/armeria/codec"
	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
	"github.com/strogo/armeria/transport"
)

// Client calls one server URL in one wire format. Sequence ids are assigned
// per client; Call is safe for concurrent use.
type Client struct {
	tr  *transport.HTTP
	cdc codec.Codec
	f   format.Format
	seq atomic.Int32
}

// New returns a client posting to url in the given wire format.
func New(url string, f format.Format) (*Client, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("client: invalid format %v", f)
	}
	return &Client{tr: transport.NewHTTP(url), cdc: codec.For(f), f: f}, nil
}

// Call invokes method with args and returns the result value. A declared
// exception raised by the server comes back as a *message.Exception error.
// When the server multiplexes several services, prefix the method with its
// service key, as in "clock:after".
func (c *Client) Call(ctx context.Context, method string, args ...message.Value) (message.Value, error) {
	seq := c.seq.Add(1)
	payload, err := c.cdc.Encode(&message.Call{Method: method, Seq: seq, Args: args})
	if err != nil {
		return message.Value{}, err
	}
	raw, err := c.tr.RoundTrip(ctx, c.f, payload)
	if err != nil {
		return message.Value{}, err
	}

	var res message.Result
	if err := c.cdc.Decode(raw, &res); err != nil {
		return message.Value{}, err
	}
	if res.Seq != seq {
		return message.Value{}, fmt.Errorf("client: response seq %d does not match request seq %d", res.Seq, seq)
	}
	if res.Exc != nil {
		return message.Value{}, res.Exc
	}
	return res.Value, nil
}

// Format returns the client's wire format.
func (c *Client) Format() format.Format { return c.f }
