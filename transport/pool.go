package transport

import (
	"net"
	"net/http"
	"time"
)

// DefaultClient is shared by transports that do not bring their own client.
//
// Every call is a separate POST, so connection reuse is what keeps per-call
// cost down to the request itself instead of a fresh TCP handshake each
// time. The idle pool is bounded per host so a burst against one endpoint
// does not pin sockets forever. Only the dial carries a timeout here; call
// deadlines come from the caller's context.
var DefaultClient = &http.Client{
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	},
}
