package codec

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
)

// jsonCodec is the compact single-line JSON format with short field keys.
// Pros: cross-language, curl-able. Cons: slower and larger than the binary
// formats, bytes fields pay the base64 tax.
type jsonCodec struct{}

func (jsonCodec) Format() format.Format { return format.JSON }

func (jsonCodec) Encode(v any) ([]byte, error) {
	switch v.(type) {
	case *message.Call, *message.Result:
	default:
		return nil, envelopeTypeError(format.JSON, v)
	}
	if err := validateKinds(v); err != nil {
		return nil, &EncodeError{Format: format.JSON, Err: err}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Format: format.JSON, Err: err}
	}
	return data, nil
}

func (jsonCodec) Decode(data []byte, v any) error {
	switch v.(type) {
	case *message.Call, *message.Result:
	default:
		return envelopeTypeError(format.JSON, v)
	}
	if err := strictUnmarshal(data, v); err != nil {
		return &DecodeError{Format: format.JSON, Reason: "malformed payload", Err: err}
	}
	return validateEnvelope(format.JSON, v)
}

// strictUnmarshal decodes exactly one JSON value, rejecting unknown fields
// and trailing data.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after envelope")
	}
	return nil
}
