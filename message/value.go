package message

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the payload arm of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindI64
	KindF64
	KindString
	KindBytes
	KindList
)

var kindNames = [...]string{"null", "bool", "i64", "f64", "string", "bytes", "list"}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool { return k <= KindList }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Value is a self-describing argument or return value. Only the arm selected
// by Kind is meaningful; the others stay zero so encoded forms can omit them.
type Value struct {
	Kind Kind    `json:"k" cbor:"1,keyasint"`
	Bool bool    `json:"b,omitempty" cbor:"2,keyasint,omitempty"`
	I64  int64   `json:"i,omitempty" cbor:"3,keyasint,omitempty"`
	F64  float64 `json:"f,omitempty" cbor:"4,keyasint,omitempty"`
	Str  string  `json:"s,omitempty" cbor:"5,keyasint,omitempty"`
	Bin  []byte  `json:"x,omitempty" cbor:"6,keyasint,omitempty"`
	List []Value `json:"l,omitempty" cbor:"7,keyasint,omitempty"`
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int wraps a signed 64-bit integer.
func Int(i int64) Value { return Value{Kind: KindI64, I64: i} }

// Float wraps a 64-bit float.
func Float(f float64) Value { return Value{Kind: KindF64, F64: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Bytes wraps a raw byte slice. The slice is not copied.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bin: b} }

// ListOf wraps the given values as a list.
func ListOf(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports semantic equality: same kind, same payload. Nil and empty
// bytes or lists compare equal, so equality is stable across codecs that
// omit empty fields.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindI64:
		return v.I64 == o.I64
	case KindF64:
		return v.F64 == o.F64
	case KindString:
		return v.Str == o.Str
	case KindBytes:
		if len(v.Bin) != len(o.Bin) {
			return false
		}
		for i := range v.Bin {
			if v.Bin[i] != o.Bin[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for logs and error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindI64:
		return strconv.FormatInt(v.I64, 10)
	case KindF64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	case KindBytes:
		if len(v.Bin) <= 16 {
			return fmt.Sprintf("0x%x", v.Bin)
		}
		return fmt.Sprintf("bytes[%d]", len(v.Bin))
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return v.Kind.String()
}
