package service

import (
	"errors"
	"sync"

	"github.com/strogo/armeria/message"
)

// Outcome is the settled result of an invocation: a return value or an
// error. An error of type *message.Exception travels as a declared
// application exception; any other error is folded into the generic
// unhandled form by the transport.
type Outcome struct {
	Value message.Value
	Err   error
}

// Completion is the single-assignment handle passed to callback-style
// methods. The first Succeed or Fail settles the call; every later
// settlement is dropped and reported through the violation hook, never
// delivered. Settlement and cancellation may happen on any goroutines.
type Completion struct {
	mu        sync.Mutex
	settled   bool
	abandoned bool
	outcome   chan Outcome
	cancelled chan struct{}

	onViolation func()
	onLate      func()
}

// NewCompletion builds a Completion. onViolation fires on every settlement
// after the first; onLate fires when the first settlement arrives after
// Abandon. Either hook may be nil. Hooks run on the settling goroutine.
func NewCompletion(onViolation, onLate func()) *Completion {
	return &Completion{
		outcome:     make(chan Outcome, 1),
		cancelled:   make(chan struct{}),
		onViolation: onViolation,
		onLate:      onLate,
	}
}

// Succeed settles the call with a value.
func (c *Completion) Succeed(v message.Value) {
	c.settle(Outcome{Value: v})
}

// Fail settles the call with an error. Pass a *message.Exception to raise a
// declared application exception.
func (c *Completion) Fail(err error) {
	if err == nil {
		err = errors.New("completion failed with nil error")
	}
	c.settle(Outcome{Err: err})
}

func (c *Completion) settle(o Outcome) {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		if c.onViolation != nil {
			c.onViolation()
		}
		return
	}
	c.settled = true
	late := c.abandoned
	c.mu.Unlock()

	// Buffered, and only the first settlement reaches here: never blocks.
	c.outcome <- o
	if late && c.onLate != nil {
		c.onLate()
	}
}

// Done delivers the single outcome. Consumed by the invocation adapter.
func (c *Completion) Done() <-chan Outcome { return c.outcome }

// Cancelled is closed when the caller is gone and the outcome cannot be
// delivered anymore. Handlers may watch it to stop early; settling after
// cancellation is still legal and is simply discarded.
func (c *Completion) Cancelled() <-chan struct{} { return c.cancelled }

// Abandon marks the caller as gone. Idempotent. Called by the invocation
// adapter when the request ends before the call settles.
func (c *Completion) Abandon() {
	c.mu.Lock()
	if !c.abandoned {
		c.abandoned = true
		close(c.cancelled)
	}
	c.mu.Unlock()
}
