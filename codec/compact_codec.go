package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
)

// compactCodec is CBOR with canonical encoding, using the integer struct keys
// declared on the envelope types.
type compactCodec struct{}

var (
	compactEnc cbor.EncMode
	compactDec cbor.DecMode
)

func init() {
	var err error
	compactEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	compactDec, err = cbor.DecOptions{
		MaxNestedLevels:  maxValueDepth + 8, // envelope layers sit above the value tree
		MaxArrayElements: maxListLen,
		MaxMapPairs:      maxListLen,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func (compactCodec) Format() format.Format { return format.Compact }

func (compactCodec) Encode(v any) ([]byte, error) {
	switch v.(type) {
	case *message.Call, *message.Result:
	default:
		return nil, envelopeTypeError(format.Compact, v)
	}
	if err := validateKinds(v); err != nil {
		return nil, &EncodeError{Format: format.Compact, Err: err}
	}
	data, err := compactEnc.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Format: format.Compact, Err: err}
	}
	return data, nil
}

func (compactCodec) Decode(data []byte, v any) error {
	switch v.(type) {
	case *message.Call, *message.Result:
	default:
		return envelopeTypeError(format.Compact, v)
	}
	if err := compactDec.Unmarshal(data, v); err != nil {
		return &DecodeError{Format: format.Compact, Reason: "malformed payload", Err: err}
	}
	return validateEnvelope(format.Compact, v)
}
