package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"go.uber.org/zap"

	"github.com/strogo/armeria/message"
	"github.com/strogo/armeria/service"
)

// errAbandoned marks a call whose caller went away before the outcome was
// ready. No response is written for it.
var errAbandoned = errors.New("server: call abandoned by the caller")

// DispatchKind says why a decoded call could not be routed to a handler.
type DispatchKind int

const (
	// UnknownService means the multiplex key resolved no binding.
	UnknownService DispatchKind = iota
	// UnknownMethod means the binding has no such wire method.
	UnknownMethod
	// BadArguments means the wire arguments do not fit the method.
	BadArguments
)

func (k DispatchKind) String() string {
	switch k {
	case UnknownService:
		return "unknown service"
	case UnknownMethod:
		return "unknown method"
	case BadArguments:
		return "bad arguments"
	}
	return fmt.Sprintf("DispatchKind(%d)", int(k))
}

// DispatchError is a routing failure for an otherwise well-formed call. It
// surfaces as an HTTP client error, not as a response envelope.
type DispatchError struct {
	Kind   DispatchKind
	Target string
	Err    error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc: %v %q: %v", e.Kind, e.Target, e.Err)
	}
	return fmt.Sprintf("rpc: %v %q", e.Kind, e.Target)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) status() int {
	if e.Kind == BadArguments {
		return http.StatusBadRequest
	}
	return http.StatusNotFound
}

// dispatch is the innermost handler of the middleware chain: resolve the
// target binding and method, bind the arguments, invoke, and fold the
// outcome into a response envelope.
func (s *Server) dispatch(ctx context.Context, call *message.Call) (*message.Result, error) {
	inv := invocationFrom(ctx)

	key, methodName := s.registry.SplitMethod(call.Method)
	// On a non-multiplexed registry the sole binding serves every call,
	// whatever key it was registered under.
	binding := s.registry.Sole()
	if binding == nil {
		var ok bool
		binding, ok = s.registry.Resolve(key)
		if !ok {
			return nil, &DispatchError{Kind: UnknownService, Target: key}
		}
	}
	m, ok := binding.Method(methodName)
	if !ok {
		return nil, &DispatchError{Kind: UnknownMethod, Target: call.Method}
	}
	if inv != nil {
		inv.advance(phaseResolved)
	}

	bound, err := m.BindArgs(call.Args)
	if err != nil {
		return nil, &DispatchError{Kind: BadArguments, Target: call.Method, Err: err}
	}

	if inv != nil {
		inv.advance(phaseInvoked)
	}
	if m.Style() == service.Async {
		return s.invokeAsync(ctx, binding, m, call, bound)
	}
	out := binding.Invoke(ctx, m, bound)
	return resultFrom(call.Seq, out), nil
}

// invokeAsync starts a callback-style method and waits for its single
// settlement, or for the caller to go away, whichever comes first. After
// abandonment the settlement is still accepted and discarded; only a second
// settlement is a contract violation worth shouting about.
func (s *Server) invokeAsync(ctx context.Context, binding *service.Binding, m *service.Method,
	call *message.Call, bound []reflect.Value) (*message.Result, error) {

	onViolation := func() {
		s.log.Error("completion settled more than once",
			zap.String("method", call.Method),
			zap.Int32("seq", call.Seq),
			zap.String("impl", binding.Impl()))
	}
	onLate := func() {
		s.log.Debug("late completion discarded",
			zap.String("method", call.Method),
			zap.Int32("seq", call.Seq),
			zap.String("impl", binding.Impl()))
	}

	comp := service.NewCompletion(onViolation, onLate)
	if err := binding.Start(ctx, m, bound, comp); err != nil {
		return message.Fail(call.Seq, message.Unhandled(err.Error())), nil
	}
	select {
	case out := <-comp.Done():
		return resultFrom(call.Seq, out), nil
	case <-ctx.Done():
		comp.Abandon()
		return nil, errAbandoned
	}
}

// resultFrom folds an invocation outcome into a response envelope. Declared
// exceptions pass through; every other error is wrapped in the generic
// unhandled form so server internals never reach the wire.
func resultFrom(seq int32, out service.Outcome) *message.Result {
	if out.Err != nil {
		var exc *message.Exception
		if errors.As(out.Err, &exc) {
			return message.Fail(seq, exc)
		}
		return message.Fail(seq, message.Unhandled(out.Err.Error()))
	}
	return message.Succeed(seq, out.Value)
}
