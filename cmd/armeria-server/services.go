package main

import (
	"context"
	"strings"
	"time"

	"github.com/strogo/armeria/message"
	"github.com/strogo/armeria/service"
)

// Demo services hosted by the standalone binary. Greeter serves under the
// default key, Clock under "clock", so the binary exercises multiplexed
// routing and both invocation styles out of the box.

type Greeter struct{}

func (g *Greeter) Hello(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", message.NewException("EmptyName", nil)
	}
	return "Hello, " + name + "!", nil
}

func (g *Greeter) Sum(xs []int64) int64 {
	var total int64
	for _, x := range xs {
		total += x
	}
	return total
}

type Clock struct{}

// Now returns the current time in Unix milliseconds.
func (c *Clock) Now() int64 {
	return time.Now().UnixMilli()
}

// After settles with ms once that many milliseconds have passed, or stops
// early when the caller goes away.
func (c *Clock) After(ctx context.Context, ms int64, comp *service.Completion) {
	go func() {
		t := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer t.Stop()
		select {
		case <-t.C:
			comp.Succeed(message.Int(ms))
		case <-comp.Cancelled():
		}
	}()
}
