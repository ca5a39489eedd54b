package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/strogo/armeria/message"
)

// Logging logs every call with its duration and outcome.
func Logging(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call *message.Call) (*message.Result, error) {
			start := time.Now()
			res, err := next(ctx, call)
			fields := []zap.Field{
				zap.String("method", call.Method),
				zap.Int32("seq", call.Seq),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case err != nil:
				logger.Warn("call not dispatched", append(fields, zap.Error(err))...)
			case res != nil && res.Exc != nil:
				logger.Info("call raised", append(fields, zap.String("exception", res.Exc.Name))...)
			default:
				logger.Debug("call completed", fields...)
			}
			return res, err
		}
	}
}
