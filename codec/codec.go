// Package codec implements the byte representations of the message envelopes:
// one Codec per wire format, all sharing the same envelope model and the same
// decode limits.
package codec

import (
	"fmt"

	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
)

// Decode limits shared by every format. They bound what a single envelope can
// make the server allocate.
const (
	maxBlobLen    = 1 << 24 // strings and byte fields
	maxListLen    = 65535   // list elements, arguments, exception fields
	maxValueDepth = 32      // nested lists
)

// Codec turns envelopes into bytes and back for one wire format.
// Implementations hold no state and are safe for concurrent use.
type Codec interface {
	// Encode serializes v, which must be *message.Call or *message.Result.
	Encode(v any) ([]byte, error)
	// Decode parses data into v, which must be *message.Call or *message.Result.
	Decode(data []byte, v any) error
	// Format reports the wire format this codec implements.
	Format() format.Format
}

// For returns the codec for f.
func For(f format.Format) Codec {
	switch f {
	case format.Compact:
		return compactCodec{}
	case format.JSON:
		return jsonCodec{}
	case format.Text:
		return textCodec{}
	}
	return binaryCodec{}
}

// DecodeError reports a payload that does not parse as an envelope in the
// given format. The HTTP layer maps it to a 400.
type DecodeError struct {
	Format format.Format
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codec: %v decode: %s: %v", e.Format, e.Reason, e.Err)
	}
	return fmt.Sprintf("codec: %v decode: %s", e.Format, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a failure to serialize an envelope. For responses the
// HTTP layer maps it to a 500.
type EncodeError struct {
	Format format.Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("codec: %v encode: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// envelopeTypeError rejects Encode/Decode targets other than the two
// envelope types.
func envelopeTypeError(f format.Format, v any) error {
	return fmt.Errorf("codec: %v: v must be *message.Call or *message.Result, got %T", f, v)
}

// validateKinds rejects envelopes carrying a value whose kind tag is not
// declared. The self-describing marshallers write any kind byte as-is, so
// this is the encode-side counterpart of the kind check in validateValue:
// a malformed handler result must fail here, not on the peer's decode.
func validateKinds(v any) error {
	switch m := v.(type) {
	case *message.Call:
		for _, a := range m.Args {
			if err := validateKind(a); err != nil {
				return err
			}
		}
	case *message.Result:
		if err := validateKind(m.Value); err != nil {
			return err
		}
		if m.Exc != nil {
			for _, fv := range m.Exc.Fields {
				if err := validateKind(fv); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateKind(v message.Value) error {
	if !v.Kind.Valid() {
		return fmt.Errorf("unknown value kind %d", uint8(v.Kind))
	}
	for _, e := range v.List {
		if err := validateKind(e); err != nil {
			return err
		}
	}
	return nil
}

// validateEnvelope checks a decoded envelope against the shared limits and
// the declared value kinds. The self-describing formats need this because
// unmarshalling alone accepts kind tags and sizes the wire grammar does not.
func validateEnvelope(f format.Format, v any) error {
	switch m := v.(type) {
	case *message.Call:
		if len(m.Args) > maxListLen {
			return &DecodeError{Format: f, Reason: "too many arguments"}
		}
		for _, a := range m.Args {
			if err := validateValue(f, a, 0); err != nil {
				return err
			}
		}
	case *message.Result:
		if err := validateValue(f, m.Value, 0); err != nil {
			return err
		}
		if m.Exc != nil {
			if m.Exc.Name == "" {
				return &DecodeError{Format: f, Reason: "exception without a name"}
			}
			if len(m.Exc.Fields) > maxListLen {
				return &DecodeError{Format: f, Reason: "too many exception fields"}
			}
			for _, fv := range m.Exc.Fields {
				if err := validateValue(f, fv, 0); err != nil {
					return err
				}
			}
		}
	default:
		return envelopeTypeError(f, v)
	}
	return nil
}

func validateValue(f format.Format, v message.Value, depth int) error {
	if depth > maxValueDepth {
		return &DecodeError{Format: f, Reason: "value nesting too deep"}
	}
	if !v.Kind.Valid() {
		return &DecodeError{Format: f, Reason: fmt.Sprintf("unknown value kind %d", uint8(v.Kind))}
	}
	if len(v.Str) > maxBlobLen || len(v.Bin) > maxBlobLen {
		return &DecodeError{Format: f, Reason: "string or bytes value too large"}
	}
	if len(v.List) > maxListLen {
		return &DecodeError{Format: f, Reason: "list value too long"}
	}
	for _, e := range v.List {
		if err := validateValue(f, e, depth+1); err != nil {
			return err
		}
	}
	return nil
}
