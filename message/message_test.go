package message

import (
	"strings"
	"testing"
)

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null == null", Null(), Null(), true},
		{"null != bool", Null(), Bool(false), false},
		{"bool", Bool(true), Bool(true), true},
		{"bool mismatch", Bool(true), Bool(false), false},
		{"i64", Int(7), Int(7), true},
		{"i64 vs f64", Int(7), Float(7), false},
		{"string", String("a"), String("a"), true},
		{"bytes", Bytes([]byte{1, 2}), Bytes([]byte{1, 2}), true},
		{"bytes nil == empty", Bytes(nil), Bytes([]byte{}), true},
		{"bytes mismatch", Bytes([]byte{1}), Bytes([]byte{2}), false},
		{"list nil == empty", ListOf(), Value{Kind: KindList}, true},
		{"nested list", ListOf(Int(1), ListOf(String("x"))), ListOf(Int(1), ListOf(String("x"))), true},
		{"nested list mismatch", ListOf(Int(1), ListOf(String("x"))), ListOf(Int(1), ListOf(String("y"))), false},
	}
	for _, c := range cases {
		if got := c.a.Equal(c.b); got != c.want {
			t.Errorf("%s: Equal = %v, want %v", c.name, got, c.want)
		}
		if got := c.b.Equal(c.a); got != c.want {
			t.Errorf("%s (reversed): Equal = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCallEqual(t *testing.T) {
	a := &Call{Method: "hello", Seq: 1, Args: []Value{String("Bob")}}
	b := &Call{Method: "hello", Seq: 1, Args: []Value{String("Bob")}}
	if !a.Equal(b) {
		t.Error("identical calls should be equal")
	}
	b.Seq = 2
	if a.Equal(b) {
		t.Error("seq mismatch should not be equal")
	}
	noArgs := &Call{Method: "m", Seq: 1}
	emptyArgs := &Call{Method: "m", Seq: 1, Args: []Value{}}
	if !noArgs.Equal(emptyArgs) {
		t.Error("nil args and empty args should be equal")
	}
}

func TestResultEqual(t *testing.T) {
	ok := Succeed(3, String("hi"))
	if !ok.OK() {
		t.Error("Succeed result should be OK")
	}
	if !ok.Equal(Succeed(3, String("hi"))) {
		t.Error("identical results should be equal")
	}
	exc := Fail(3, NewException("Boom", nil))
	if exc.OK() {
		t.Error("Fail result should not be OK")
	}
	if ok.Equal(exc) {
		t.Error("success and exception should not be equal")
	}
	if !exc.Equal(Fail(3, NewException("Boom", nil))) {
		t.Error("identical exceptions should be equal")
	}
}

func TestExceptionError(t *testing.T) {
	e := NewException("UserNotFound", map[string]Value{"id": Int(42), "realm": String("eu")})
	got := e.Error()
	if !strings.HasPrefix(got, "UserNotFound(") {
		t.Errorf("Error() = %q", got)
	}
	// Field order must be deterministic.
	if got != e.Error() {
		t.Errorf("Error() not stable: %q vs %q", got, e.Error())
	}
	if want := `UserNotFound(id=42, realm="eu")`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if plain := NewException("Timeout", nil).Error(); plain != "Timeout" {
		t.Errorf("Error() = %q, want Timeout", plain)
	}
}

func TestUnhandled(t *testing.T) {
	e := Unhandled("kaboom")
	if e.Name != ExcUnhandled {
		t.Errorf("Name = %q", e.Name)
	}
	if !e.Fields["message"].Equal(String("kaboom")) {
		t.Errorf("message field = %v", e.Fields["message"])
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{Bool(true), "true"},
		{Int(-9), "-9"},
		{Float(2.5), "2.5"},
		{String("a\"b"), `"a\"b"`},
		{Bytes([]byte{0xde, 0xad}), "0xdead"},
		{ListOf(Int(1), String("x")), `[1, "x"]`},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
