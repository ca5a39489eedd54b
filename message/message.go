// Package message defines the envelopes exchanged between the HTTP layer and
// service implementations.
//
// A Call is the "envelope" for a single invocation: the wire method name, a
// caller-chosen sequence id, and positional arguments as self-describing
// Values. A Result carries the outcome back: either a return Value or a
// declared application Exception. The codec layer owns how these envelopes
// look as bytes; this package is format-independent.
package message

import (
	"fmt"
	"sort"
	"strings"
)

// Call carries the data for a single invocation request.
//
// Method is the wire method name. On a multiplexed endpoint it may carry a
// "serviceKey:" prefix; this package treats it as opaque. Seq is echoed back
// unchanged in the Result so callers can pair responses with requests.
type Call struct {
	Method string  `json:"m" cbor:"1,keyasint"`
	Seq    int32   `json:"q" cbor:"2,keyasint"`
	Args   []Value `json:"a,omitempty" cbor:"3,keyasint,omitempty"`
}

// Result carries the outcome of a Call. Exactly one of Value and Exc is
// meaningful: Exc non-nil means the call raised a declared application
// exception, otherwise Value holds the return value (Null for void methods).
type Result struct {
	Seq   int32      `json:"q" cbor:"1,keyasint"`
	Value Value      `json:"v" cbor:"2,keyasint"`
	Exc   *Exception `json:"e,omitempty" cbor:"3,keyasint,omitempty"`
}

// Succeed builds a successful Result echoing seq.
func Succeed(seq int32, v Value) *Result {
	return &Result{Seq: seq, Value: v}
}

// Fail builds a Result carrying a declared application exception.
func Fail(seq int32, exc *Exception) *Result {
	return &Result{Seq: seq, Exc: exc}
}

// OK reports whether r carries a return value rather than an exception.
func (r *Result) OK() bool { return r.Exc == nil }

// Equal reports semantic equality of two results.
func (r *Result) Equal(o *Result) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Seq == o.Seq && r.Value.Equal(o.Value) && r.Exc.Equal(o.Exc)
}

// Equal reports semantic equality of two calls. Nil and empty argument lists
// compare equal.
func (c *Call) Equal(o *Call) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Method != o.Method || c.Seq != o.Seq || len(c.Args) != len(o.Args) {
		return false
	}
	for i := range c.Args {
		if !c.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// ExcUnhandled names the generic exception that wraps undeclared handler
// failures (returned errors of unknown type, panics). Handlers that want a
// distinct failure surface return an *Exception instead.
const ExcUnhandled = "UnhandledError"

// Exception is a declared application failure travelling inside a normal
// response. It implements error so service code can return one directly.
type Exception struct {
	Name   string           `json:"n" cbor:"1,keyasint"`
	Fields map[string]Value `json:"f,omitempty" cbor:"2,keyasint,omitempty"`
}

// NewException builds an exception with the given name and optional fields.
func NewException(name string, fields map[string]Value) *Exception {
	return &Exception{Name: name, Fields: fields}
}

// Unhandled wraps an arbitrary failure message into the generic exception.
func Unhandled(msg string) *Exception {
	return &Exception{Name: ExcUnhandled, Fields: map[string]Value{"message": String(msg)}}
}

func (e *Exception) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Fields) == 0 {
		return e.Name
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteString("(")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%s", k, e.Fields[k])
	}
	b.WriteString(")")
	return b.String()
}

// Equal reports semantic equality of two exceptions.
func (e *Exception) Equal(o *Exception) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Name != o.Name || len(e.Fields) != len(o.Fields) {
		return false
	}
	for k, v := range e.Fields {
		ov, ok := o.Fields[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
