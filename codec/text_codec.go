package codec

import (
	"encoding/json"
	"fmt"

	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
)

// textCodec renders envelopes as indented JSON with spelled-out field names
// and kind tags, so a human can write a call by hand and read the reply.
// Slowest and largest of the formats; meant for internally reachable
// endpoints, never for production traffic.
type textCodec struct{}

const (
	textMarkerCall   = "call"
	textMarkerResult = "reply"
)

type textCall struct {
	RPC    string      `json:"rpc"`
	Method string      `json:"method"`
	Seq    int32       `json:"seq"`
	Args   []textValue `json:"args,omitempty"`
}

type textResult struct {
	RPC       string         `json:"rpc"`
	Seq       int32          `json:"seq"`
	Value     *textValue     `json:"value,omitempty"`
	Exception *textException `json:"exception,omitempty"`
}

type textException struct {
	Name   string               `json:"name"`
	Fields map[string]textValue `json:"fields,omitempty"`
}

type textValue struct {
	Type   string      `json:"type"`
	Bool   *bool       `json:"bool,omitempty"`
	Int    *int64      `json:"int,omitempty"`
	Float  *float64    `json:"float,omitempty"`
	String *string     `json:"string,omitempty"`
	Bytes  []byte      `json:"bytes,omitempty"`
	List   []textValue `json:"list,omitempty"`
}

var textKinds = map[string]message.Kind{
	"null":   message.KindNull,
	"bool":   message.KindBool,
	"i64":    message.KindI64,
	"f64":    message.KindF64,
	"string": message.KindString,
	"bytes":  message.KindBytes,
	"list":   message.KindList,
}

func (textCodec) Format() format.Format { return format.Text }

func (textCodec) Encode(v any) ([]byte, error) {
	var out any
	switch m := v.(type) {
	case *message.Call:
		tc := textCall{RPC: textMarkerCall, Method: m.Method, Seq: m.Seq}
		for _, a := range m.Args {
			tv, err := toTextValue(a)
			if err != nil {
				return nil, &EncodeError{Format: format.Text, Err: err}
			}
			tc.Args = append(tc.Args, tv)
		}
		out = tc
	case *message.Result:
		tr := textResult{RPC: textMarkerResult, Seq: m.Seq}
		if m.Exc != nil {
			te := textException{Name: m.Exc.Name}
			if len(m.Exc.Fields) > 0 {
				te.Fields = make(map[string]textValue, len(m.Exc.Fields))
				for k, fv := range m.Exc.Fields {
					tv, err := toTextValue(fv)
					if err != nil {
						return nil, &EncodeError{Format: format.Text, Err: err}
					}
					te.Fields[k] = tv
				}
			}
			tr.Exception = &te
		} else {
			tv, err := toTextValue(m.Value)
			if err != nil {
				return nil, &EncodeError{Format: format.Text, Err: err}
			}
			tr.Value = &tv
		}
		out = tr
	default:
		return nil, envelopeTypeError(format.Text, v)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, &EncodeError{Format: format.Text, Err: err}
	}
	return append(data, '\n'), nil
}

func (textCodec) Decode(data []byte, v any) error {
	switch m := v.(type) {
	case *message.Call:
		var tc textCall
		if err := strictUnmarshal(data, &tc); err != nil {
			return &DecodeError{Format: format.Text, Reason: "malformed payload", Err: err}
		}
		if tc.RPC != textMarkerCall {
			return &DecodeError{Format: format.Text, Reason: fmt.Sprintf("envelope marker %q is not %q", tc.RPC, textMarkerCall)}
		}
		var args []message.Value
		for _, tv := range tc.Args {
			a, err := fromTextValue(tv)
			if err != nil {
				return &DecodeError{Format: format.Text, Reason: "invalid value", Err: err}
			}
			args = append(args, a)
		}
		m.Method = tc.Method
		m.Seq = tc.Seq
		m.Args = args
	case *message.Result:
		var tr textResult
		if err := strictUnmarshal(data, &tr); err != nil {
			return &DecodeError{Format: format.Text, Reason: "malformed payload", Err: err}
		}
		if tr.RPC != textMarkerResult {
			return &DecodeError{Format: format.Text, Reason: fmt.Sprintf("envelope marker %q is not %q", tr.RPC, textMarkerResult)}
		}
		if tr.Value != nil && tr.Exception != nil {
			return &DecodeError{Format: format.Text, Reason: "reply carries both value and exception"}
		}
		m.Seq = tr.Seq
		m.Value = message.Null()
		m.Exc = nil
		if tr.Exception != nil {
			exc := &message.Exception{Name: tr.Exception.Name}
			if len(tr.Exception.Fields) > 0 {
				exc.Fields = make(map[string]message.Value, len(tr.Exception.Fields))
				for k, tv := range tr.Exception.Fields {
					fv, err := fromTextValue(tv)
					if err != nil {
						return &DecodeError{Format: format.Text, Reason: "invalid exception field", Err: err}
					}
					exc.Fields[k] = fv
				}
			}
			m.Exc = exc
		} else if tr.Value != nil {
			val, err := fromTextValue(*tr.Value)
			if err != nil {
				return &DecodeError{Format: format.Text, Reason: "invalid value", Err: err}
			}
			m.Value = val
		}
	default:
		return envelopeTypeError(format.Text, v)
	}
	return validateEnvelope(format.Text, v)
}

func toTextValue(v message.Value) (textValue, error) {
	if !v.Kind.Valid() {
		return textValue{}, fmt.Errorf("unknown value kind %d", uint8(v.Kind))
	}
	tv := textValue{Type: v.Kind.String()}
	switch v.Kind {
	case message.KindBool:
		b := v.Bool
		tv.Bool = &b
	case message.KindI64:
		i := v.I64
		tv.Int = &i
	case message.KindF64:
		f := v.F64
		tv.Float = &f
	case message.KindString:
		s := v.Str
		tv.String = &s
	case message.KindBytes:
		tv.Bytes = v.Bin
	case message.KindList:
		for _, e := range v.List {
			te, err := toTextValue(e)
			if err != nil {
				return textValue{}, err
			}
			tv.List = append(tv.List, te)
		}
	}
	return tv, nil
}

func fromTextValue(tv textValue) (message.Value, error) {
	kind, ok := textKinds[tv.Type]
	if !ok {
		return message.Value{}, fmt.Errorf("unknown value type %q", tv.Type)
	}
	switch kind {
	case message.KindNull:
		return message.Null(), nil
	case message.KindBool:
		if tv.Bool == nil {
			return message.Value{}, fmt.Errorf("%s value missing its payload", tv.Type)
		}
		return message.Bool(*tv.Bool), nil
	case message.KindI64:
		if tv.Int == nil {
			return message.Value{}, fmt.Errorf("%s value missing its payload", tv.Type)
		}
		return message.Int(*tv.Int), nil
	case message.KindF64:
		if tv.Float == nil {
			return message.Value{}, fmt.Errorf("%s value missing its payload", tv.Type)
		}
		return message.Float(*tv.Float), nil
	case message.KindString:
		if tv.String == nil {
			return message.Value{}, fmt.Errorf("%s value missing its payload", tv.Type)
		}
		return message.String(*tv.String), nil
	case message.KindBytes:
		return message.Bytes(tv.Bytes), nil
	}
	list := make([]message.Value, 0, len(tv.List))
	for _, te := range tv.List {
		e, err := fromTextValue(te)
		if err != nil {
			return message.Value{}, err
		}
		list = append(list, e)
	}
	return message.Value{Kind: message.KindList, List: list}, nil
}
