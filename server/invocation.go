package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
)

// phase is the lifecycle of one request inside the pipeline. Phases only
// move forward; failing records the phase the request died in.
type phase int

const (
	phaseReceived phase = iota
	phaseNegotiated
	phaseDecoded
	phaseResolved
	phaseInvoked
	phaseCompleted
	phaseFailed
)

var phaseNames = [...]string{
	"received", "negotiated", "decoded", "resolved", "invoked", "completed", "failed",
}

func (p phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// invocation tracks a single request for diagnostics. It lives in the
// request context so dispatch can advance it from inside the middleware
// chain. Middlewares may run the inner handler on a goroutine of their own
// (Timeout does), so the record is mutex-guarded.
type invocation struct {
	start time.Time

	mu       sync.Mutex
	format   format.Format
	call     *message.Call
	phase    phase
	failedAt phase
	status   int
	reason   string
}

type invocationKey struct{}

func newInvocation() *invocation {
	return &invocation{start: time.Now(), phase: phaseReceived}
}

// invocationFrom pulls the per-request record out of ctx. Dispatch also runs
// under detached contexts in tests, so absence is fine.
func invocationFrom(ctx context.Context) *invocation {
	inv, _ := ctx.Value(invocationKey{}).(*invocation)
	return inv
}

func (inv *invocation) advance(p phase) {
	inv.mu.Lock()
	inv.advanceLocked(p)
	inv.mu.Unlock()
}

// advanceLocked moves the phase forward. A settled request (completed or
// failed) outranks every pipeline phase, so a dispatch still running after
// a timeout cannot drag the record back.
func (inv *invocation) advanceLocked(p phase) {
	if p > inv.phase {
		inv.phase = p
	}
}

func (inv *invocation) negotiated(f format.Format) {
	inv.mu.Lock()
	inv.format = f
	inv.advanceLocked(phaseNegotiated)
	inv.mu.Unlock()
}

func (inv *invocation) decoded(call *message.Call) {
	inv.mu.Lock()
	inv.call = call
	inv.advanceLocked(phaseDecoded)
	inv.mu.Unlock()
}

func (inv *invocation) complete() {
	inv.mu.Lock()
	inv.phase = phaseCompleted
	inv.status = 200
	inv.mu.Unlock()
}

func (inv *invocation) fail(status int, reason string) {
	inv.mu.Lock()
	inv.failedAt = inv.phase
	inv.phase = phaseFailed
	inv.status = status
	inv.reason = reason
	inv.mu.Unlock()
}

func (inv *invocation) fields() []zap.Field {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	fields := make([]zap.Field, 0, 8)
	fields = append(fields,
		zap.Stringer("phase", inv.phase),
		zap.Duration("duration", time.Since(inv.start)),
	)
	if inv.phase >= phaseNegotiated || inv.failedAt >= phaseNegotiated {
		fields = append(fields, zap.Stringer("format", inv.format))
	}
	if inv.call != nil {
		fields = append(fields,
			zap.String("method", inv.call.Method),
			zap.Int32("seq", inv.call.Seq))
	}
	if inv.status != 0 {
		fields = append(fields, zap.Int("status", inv.status))
	}
	if inv.phase == phaseFailed {
		fields = append(fields, zap.Stringer("failed_at", inv.failedAt))
		if inv.reason != "" {
			fields = append(fields, zap.String("reason", inv.reason))
		}
	}
	return fields
}
