package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/strogo/armeria/message"
)

// Recovery converts a panic anywhere further down the chain into a generic
// unhandled exception. Handler panics are already contained by the
// invocation layer; this is the net for middleware code itself.
func Recovery(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *message.Call) (res *message.Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic in call pipeline",
						zap.String("method", call.Method),
						zap.Int32("seq", call.Seq),
						zap.Any("panic", r),
						zap.Stack("stack"),
					)
					res = message.Fail(call.Seq, message.Unhandled(fmt.Sprintf("panic: %v", r)))
					err = nil
				}
			}()
			return next(ctx, call)
		}
	}
}
