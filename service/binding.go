// Package service maps registered Go implementations onto callable wire
// methods and owns the completion contract shared by synchronous and
// callback-style handlers.
//
// A Binding is one scanned implementation under one multiplex key. Methods
// are matched by shape:
//
//	func (s *Greeter) Hello(ctx context.Context, name string) (string, error) // synchronous
//	func (s *Greeter) Shout(msg string) string                                // synchronous, no ctx, no error
//	func (s *Timer) After(ms int64, c *service.Completion)                    // callback-style
//
// The leading context.Context is optional everywhere. Synchronous methods
// may return nothing, a value, an error, or a value and an error (error
// last). Callback-style methods take a *Completion as their last parameter,
// return nothing, and settle the Completion exactly once, from any
// goroutine. Wire names are the Go names with the first rune lowered:
// Hello becomes "hello", DoFoo becomes "doFoo". Methods that fit no shape
// are skipped.
package service

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"unicode"

	"github.com/strogo/armeria/message"
)

var (
	errType        = reflect.TypeOf((*error)(nil)).Elem()
	ctxType        = reflect.TypeOf((*context.Context)(nil)).Elem()
	completionType = reflect.TypeOf((*Completion)(nil))
	valueType      = reflect.TypeOf(message.Value{})
)

// Style says how a bound method delivers its outcome.
type Style int

const (
	// Sync methods return their outcome from the call itself.
	Sync Style = iota
	// Async methods receive a *Completion and settle it later.
	Async
)

func (s Style) String() string {
	if s == Async {
		return "async"
	}
	return "sync"
}

// Method is one callable wire method of a Binding.
type Method struct {
	name     string
	style    Style
	method   reflect.Method
	argTypes []reflect.Type
	hasCtx   bool
	retPos   int // index of the value among the outputs, -1 if none
	errPos   int // index of the error among the outputs, -1 if none
}

// Name returns the wire name.
func (m *Method) Name() string { return m.name }

// Style returns how the method completes.
func (m *Method) Style() Style { return m.style }

// NumArgs returns the number of declared wire arguments, excluding the
// optional context and the trailing *Completion.
func (m *Method) NumArgs() int { return len(m.argTypes) }

// Binding is one implementation scanned under one multiplex key.
type Binding struct {
	key     string
	impl    string
	rcvr    reflect.Value
	methods map[string]*Method
}

// NewBinding scans rcvr and binds its suitable exported methods under key.
// The empty key names the default service. Scanning fails if rcvr has no
// suitable methods, or two Go methods collide on the same wire name.
func NewBinding(key string, rcvr any) (*Binding, error) {
	if rcvr == nil {
		return nil, fmt.Errorf("service: nil receiver for key %q", key)
	}
	v := reflect.ValueOf(rcvr)
	t := v.Type()
	b := &Binding{key: key, impl: implName(t), rcvr: v, methods: make(map[string]*Method)}
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		if method.PkgPath != "" {
			continue // unexported
		}
		spec, ok := suitableMethod(method)
		if !ok {
			continue
		}
		if prev, dup := b.methods[spec.name]; dup {
			return nil, fmt.Errorf("service: %s: methods %s and %s collide on wire name %q",
				b.impl, prev.method.Name, method.Name, spec.name)
		}
		b.methods[spec.name] = spec
	}
	if len(b.methods) == 0 {
		return nil, fmt.Errorf("service: %s has no callable methods", b.impl)
	}
	return b, nil
}

// Key returns the multiplex key the binding was registered under.
func (b *Binding) Key() string { return b.key }

// Impl returns the implementation type name, for logs.
func (b *Binding) Impl() string { return b.impl }

// Method resolves a bare wire method name.
func (b *Binding) Method(name string) (*Method, bool) {
	m, ok := b.methods[name]
	return m, ok
}

// Methods returns the bound wire names, sorted.
func (b *Binding) Methods() []string {
	names := make([]string, 0, len(b.methods))
	for n := range b.methods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// suitableMethod checks one exported method against the callable shapes.
func suitableMethod(method reflect.Method) (*Method, bool) {
	mt := method.Type
	spec := &Method{name: wireName(method.Name), method: method, retPos: -1, errPos: -1}

	in := 1 // skip the receiver
	if mt.NumIn() > in && mt.In(in) == ctxType {
		spec.hasCtx = true
		in++
	}

	// Callback style: *Completion last, nothing returned.
	if mt.NumIn() > in && mt.In(mt.NumIn()-1) == completionType {
		if mt.NumOut() != 0 {
			return nil, false
		}
		for i := in; i < mt.NumIn()-1; i++ {
			if !supportedType(mt.In(i)) {
				return nil, false
			}
			spec.argTypes = append(spec.argTypes, mt.In(i))
		}
		spec.style = Async
		return spec, true
	}

	for i := in; i < mt.NumIn(); i++ {
		if !supportedType(mt.In(i)) {
			return nil, false
		}
		spec.argTypes = append(spec.argTypes, mt.In(i))
	}

	switch mt.NumOut() {
	case 0:
	case 1:
		if mt.Out(0) == errType {
			spec.errPos = 0
		} else if supportedType(mt.Out(0)) {
			spec.retPos = 0
		} else {
			return nil, false
		}
	case 2:
		if mt.Out(1) != errType || !supportedType(mt.Out(0)) {
			return nil, false
		}
		spec.retPos, spec.errPos = 0, 1
	default:
		return nil, false
	}
	spec.style = Sync
	return spec, true
}

// Invoke calls a synchronous method and folds its returns into an Outcome.
// A panic inside the handler becomes a failed Outcome, not a crash.
func (b *Binding) Invoke(ctx context.Context, m *Method, bound []reflect.Value) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("handler panic: %v", r)}
		}
	}()
	rets := m.method.Func.Call(b.callArgs(ctx, m, bound, nil))
	if m.errPos >= 0 {
		if errv := rets[m.errPos]; !errv.IsNil() {
			return Outcome{Err: errv.Interface().(error)}
		}
	}
	if m.retPos >= 0 {
		v, err := toValue(rets[m.retPos])
		if err != nil {
			return Outcome{Err: err}
		}
		return Outcome{Value: v}
	}
	return Outcome{Value: message.Null()}
}

// Start launches a callback-style method. The method decides when, and on
// which goroutine, to settle c. A panic during initiation is returned as an
// error so the caller can fail the invocation instead of waiting forever.
func (b *Binding) Start(ctx context.Context, m *Method, bound []reflect.Value, c *Completion) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	m.method.Func.Call(b.callArgs(ctx, m, bound, c))
	return nil
}

func (b *Binding) callArgs(ctx context.Context, m *Method, bound []reflect.Value, c *Completion) []reflect.Value {
	if ctx == nil {
		ctx = context.Background()
	}
	args := make([]reflect.Value, 0, len(bound)+3)
	args = append(args, b.rcvr)
	if m.hasCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	args = append(args, bound...)
	if c != nil {
		args = append(args, reflect.ValueOf(c))
	}
	return args
}

// wireName lowers the first rune of a Go method name.
func wireName(name string) string {
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func implName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
