// Package middleware wraps call handling with cross-cutting behavior:
// logging, rate limiting, timeouts, panic recovery.
package middleware

import (
	"context"

	"github.com/strogo/armeria/message"
)

// Handler processes one decoded call into a result. A non-nil error means
// the call could not be dispatched at all (unknown target, unbindable
// arguments, abandoned request); application failures travel inside the
// Result as exceptions.
type Handler func(ctx context.Context, call *message.Call) (*message.Result, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(next Handler) Handler

// Chain combines middlewares into one. The first middleware is the
// outermost: Chain(A, B, C)(h) runs A before B before C before h, and
// unwinds in reverse.
func Chain(middlewares ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
