package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Builder accumulates bindings before the serving table is frozen. It is not
// safe for concurrent use; build the table during startup, then Freeze.
type Builder struct {
	bindings map[string]*Binding
	frozen   bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{bindings: make(map[string]*Binding)}
}

// Register scans rcvr and adds it under key. Shorthand for NewBinding + Add.
func (b *Builder) Register(key string, rcvr any) error {
	binding, err := NewBinding(key, rcvr)
	if err != nil {
		return err
	}
	return b.Add(binding)
}

// Add adds a scanned binding. The empty key is legal and names the default
// service. Duplicate keys and additions after Freeze are rejected.
func (b *Builder) Add(binding *Binding) error {
	if binding == nil {
		return errors.New("service: nil binding")
	}
	if b.frozen {
		return errors.New("service: builder is already frozen")
	}
	if _, dup := b.bindings[binding.key]; dup {
		return fmt.Errorf("service: duplicate multiplex key %q", binding.key)
	}
	b.bindings[binding.key] = binding
	return nil
}

// Freeze seals the table and returns the serving Registry. At least one
// binding is required. The Builder is unusable afterwards.
func (b *Builder) Freeze() (*Registry, error) {
	if b.frozen {
		return nil, errors.New("service: builder is already frozen")
	}
	if len(b.bindings) == 0 {
		return nil, errors.New("service: no bindings registered")
	}
	b.frozen = true
	m := make(map[string]*Binding, len(b.bindings))
	for k, v := range b.bindings {
		m[k] = v
	}
	return &Registry{bindings: m}, nil
}

// Registry is the immutable key → binding table consulted on every call.
// It never changes after Freeze, so concurrent lookups need no locking.
type Registry struct {
	bindings map[string]*Binding
}

// Resolve returns the binding for key. The empty key names the default
// service.
func (r *Registry) Resolve(key string) (*Binding, bool) {
	b, ok := r.bindings[key]
	return b, ok
}

// Multiplexed reports whether more than one binding is served. Only then is
// the "key:method" split applied to incoming wire method names.
func (r *Registry) Multiplexed() bool { return len(r.bindings) > 1 }

// Sole returns the only binding of a non-multiplexed registry, whatever its
// key. On a multiplexed registry it returns nil.
func (r *Registry) Sole() *Binding {
	if len(r.bindings) != 1 {
		return nil
	}
	for _, b := range r.bindings {
		return b
	}
	return nil
}

// Len returns the number of bindings.
func (r *Registry) Len() int { return len(r.bindings) }

// Keys returns the bound multiplex keys, sorted, so the empty default key
// comes first when present.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.bindings))
	for k := range r.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SplitMethod splits a wire method name into multiplex key and bare method
// name. The split only happens on a multiplexed registry; otherwise the
// whole name is the method and the key is empty. Only the first colon is
// structural: "a:b:c" is key "a" and method "b:c".
func (r *Registry) SplitMethod(wire string) (key, method string) {
	if !r.Multiplexed() {
		return "", wire
	}
	if i := strings.IndexByte(wire, ':'); i >= 0 {
		return wire[:i], wire[i+1:]
	}
	return "", wire
}
