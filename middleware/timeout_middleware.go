package middleware

import (
	"context"
	"time"

	"github.com/strogo/armeria/message"
)

// ExcTimeout names the exception raised when a call exceeds its deadline.
const ExcTimeout = "CallTimeout"

// Timeout bounds every call to d. The inner handler keeps running until it
// observes the cancelled context; whatever it eventually produces is
// discarded.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *message.Call) (*message.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type reply struct {
				res *message.Result
				err error
			}
			done := make(chan reply, 1)
			go func() {
				res, err := next(ctx, call)
				done <- reply{res, err}
			}()

			select {
			case r := <-done:
				return r.res, r.err
			case <-ctx.Done():
				return message.Fail(call.Seq, message.NewException(ExcTimeout, nil)), nil
			}
		}
	}
}
