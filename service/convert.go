package service

import (
	"fmt"
	"reflect"

	"github.com/strogo/armeria/message"
)

// ArgumentError reports a wire argument that cannot bind to the declared
// parameter of a resolved method. The HTTP layer maps it to a 400.
type ArgumentError struct {
	Method string
	Index  int
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("service: %s: argument %d: %s", e.Method, e.Index, e.Reason)
}

// BindArgs converts the positional wire values into the method's declared
// parameter types. Arity and kinds are checked strictly; there is no
// cross-kind coercion, so an i64 never silently becomes a float and null
// binds only to message.Value parameters.
func (m *Method) BindArgs(args []message.Value) ([]reflect.Value, error) {
	if len(args) != len(m.argTypes) {
		return nil, &ArgumentError{
			Method: m.name,
			Index:  len(m.argTypes),
			Reason: fmt.Sprintf("got %d arguments, want %d", len(args), len(m.argTypes)),
		}
	}
	bound := make([]reflect.Value, len(args))
	for i, t := range m.argTypes {
		v, err := fromValue(args[i], t)
		if err != nil {
			return nil, &ArgumentError{Method: m.name, Index: i, Reason: err.Error()}
		}
		bound[i] = v
	}
	return bound, nil
}

// supportedType reports whether t can carry wire values. The set is shared
// by parameters and return values: bool, the int sizes that fit i64,
// float64, string, []byte, message.Value, and slices of any of these.
func supportedType(t reflect.Type) bool {
	if t == valueType {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int32, reflect.Int64, reflect.Float64, reflect.String:
		return true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return true
		}
		return supportedType(t.Elem())
	}
	return false
}

func fromValue(v message.Value, t reflect.Type) (reflect.Value, error) {
	if t == valueType {
		return reflect.ValueOf(v), nil
	}
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		if v.Kind != message.KindBool {
			return reflect.Value{}, kindMismatch(v.Kind, t)
		}
		out.SetBool(v.Bool)
	case reflect.Int, reflect.Int32, reflect.Int64:
		if v.Kind != message.KindI64 {
			return reflect.Value{}, kindMismatch(v.Kind, t)
		}
		if out.OverflowInt(v.I64) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", v.I64, t)
		}
		out.SetInt(v.I64)
	case reflect.Float64:
		if v.Kind != message.KindF64 {
			return reflect.Value{}, kindMismatch(v.Kind, t)
		}
		out.SetFloat(v.F64)
	case reflect.String:
		if v.Kind != message.KindString {
			return reflect.Value{}, kindMismatch(v.Kind, t)
		}
		out.SetString(v.Str)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			if v.Kind != message.KindBytes {
				return reflect.Value{}, kindMismatch(v.Kind, t)
			}
			out.SetBytes(append([]byte(nil), v.Bin...))
			break
		}
		if v.Kind != message.KindList {
			return reflect.Value{}, kindMismatch(v.Kind, t)
		}
		out = reflect.MakeSlice(t, len(v.List), len(v.List))
		for i, e := range v.List {
			ev, err := fromValue(e, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type %s", t)
	}
	return out, nil
}

func kindMismatch(k message.Kind, t reflect.Type) error {
	return fmt.Errorf("cannot bind %s value to %s", k, t)
}

func toValue(rv reflect.Value) (message.Value, error) {
	if rv.Type() == valueType {
		return rv.Interface().(message.Value), nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		return message.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return message.Int(rv.Int()), nil
	case reflect.Float64:
		return message.Float(rv.Float()), nil
	case reflect.String:
		return message.String(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return message.Bytes(append([]byte(nil), rv.Bytes()...)), nil
		}
		list := make([]message.Value, rv.Len())
		for i := range list {
			ev, err := toValue(rv.Index(i))
			if err != nil {
				return message.Value{}, err
			}
			list[i] = ev
		}
		return message.Value{Kind: message.KindList, List: list}, nil
	}
	return message.Value{}, fmt.Errorf("unsupported return type %s", rv.Type())
}
