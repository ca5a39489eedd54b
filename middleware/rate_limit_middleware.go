package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/strogo/armeria/message"
)

// ExcRateLimited names the exception raised when the token bucket is empty.
const ExcRateLimited = "RateLimited"

// RateLimit rejects calls beyond r calls per second with bursts of up to
// burst, using a token bucket shared by all calls through this middleware.
// Rejected calls still complete normally at the transport level; the caller
// sees an ExcRateLimited exception.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next Handler) Handler {
		return func(ctx context.Context, call *message.Call) (*message.Result, error) {
			if !limiter.Allow() {
				return message.Fail(call.Seq, message.NewException(ExcRateLimited, nil)), nil
			}
			return next(ctx, call)
		}
	}
}
