package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/strogo/armeria/format"
	"github.com/strogo/armeria/message"
)

// binaryCodec is the fixed-width big-endian format.
//
// Wire layout (all integers big-endian):
//
//	envelope:  magic 'a' 'r' -- 2 bytes, version -- 1 byte, marker -- 1 byte (0=call, 1=result)
//	call:      method length -- 2 bytes, method bytes, seq -- 4 bytes,
//	           arg count -- 2 bytes, then each arg as a value
//	result:    seq -- 4 bytes, flag -- 1 byte (0=value, 1=exception), then value or exception
//	exception: name length -- 2 bytes, name bytes, field count -- 2 bytes,
//	           then per field: key length -- 2 bytes, key bytes, value
//	value:     kind -- 1 byte, then per kind:
//	           null -- nothing, bool -- 1 byte, i64 -- 8 bytes, f64 -- 8 bytes (IEEE 754 bits),
//	           string/bytes -- 4-byte length + bytes, list -- 2-byte count + elements
type binaryCodec struct{}

const (
	binaryMagic0  = 'a'
	binaryMagic1  = 'r'
	binaryVersion = 1

	markerCall   = 0
	markerResult = 1

	flagValue     = 0
	flagException = 1
)

func (binaryCodec) Format() format.Format { return format.Binary }

func (binaryCodec) Encode(v any) ([]byte, error) {
	buf := []byte{binaryMagic0, binaryMagic1, binaryVersion}
	var err error
	switch m := v.(type) {
	case *message.Call:
		buf = append(buf, markerCall)
		buf, err = appendStr16(buf, m.Method, "method name")
		if err != nil {
			break
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(m.Seq))
		if len(m.Args) > maxListLen {
			err = fmt.Errorf("too many arguments: %d", len(m.Args))
			break
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.Args)))
		for _, a := range m.Args {
			if buf, err = appendValue(buf, a, 0); err != nil {
				break
			}
		}
	case *message.Result:
		buf = append(buf, markerResult)
		buf = binary.BigEndian.AppendUint32(buf, uint32(m.Seq))
		if m.Exc != nil {
			buf = append(buf, flagException)
			buf, err = appendException(buf, m.Exc)
		} else {
			buf = append(buf, flagValue)
			buf, err = appendValue(buf, m.Value, 0)
		}
	default:
		return nil, envelopeTypeError(format.Binary, v)
	}
	if err != nil {
		return nil, &EncodeError{Format: format.Binary, Err: err}
	}
	return buf, nil
}

func appendStr16(buf []byte, s, what string) ([]byte, error) {
	if len(s) > math.MaxUint16 {
		return nil, fmt.Errorf("%s too long: %d bytes", what, len(s))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...), nil
}

func appendException(buf []byte, exc *message.Exception) ([]byte, error) {
	buf, err := appendStr16(buf, exc.Name, "exception name")
	if err != nil {
		return nil, err
	}
	if len(exc.Fields) > maxListLen {
		return nil, fmt.Errorf("too many exception fields: %d", len(exc.Fields))
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(exc.Fields)))
	for k, fv := range exc.Fields {
		if buf, err = appendStr16(buf, k, "exception field key"); err != nil {
			return nil, err
		}
		if buf, err = appendValue(buf, fv, 0); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendValue(buf []byte, v message.Value, depth int) ([]byte, error) {
	if depth > maxValueDepth {
		return nil, fmt.Errorf("value nesting exceeds %d levels", maxValueDepth)
	}
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case message.KindNull:
	case message.KindBool:
		if v.Bool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case message.KindI64:
		buf = binary.BigEndian.AppendUint64(buf, uint64(v.I64))
	case message.KindF64:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v.F64))
	case message.KindString:
		if len(v.Str) > maxBlobLen {
			return nil, fmt.Errorf("string value too large: %d bytes", len(v.Str))
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Str)))
		buf = append(buf, v.Str...)
	case message.KindBytes:
		if len(v.Bin) > maxBlobLen {
			return nil, fmt.Errorf("bytes value too large: %d bytes", len(v.Bin))
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v.Bin)))
		buf = append(buf, v.Bin...)
	case message.KindList:
		if len(v.List) > maxListLen {
			return nil, fmt.Errorf("list value too long: %d elements", len(v.List))
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(v.List)))
		var err error
		for _, e := range v.List {
			if buf, err = appendValue(buf, e, depth+1); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown value kind %d", uint8(v.Kind))
	}
	return buf, nil
}

func (binaryCodec) Decode(data []byte, v any) error {
	r := &binReader{data: data}

	// Envelope header: magic, version, marker.
	hdr, err := r.take(4)
	if err != nil {
		return &DecodeError{Format: format.Binary, Reason: "truncated envelope header"}
	}
	if hdr[0] != binaryMagic0 || hdr[1] != binaryMagic1 {
		return &DecodeError{Format: format.Binary, Reason: "bad magic"}
	}
	if hdr[2] != binaryVersion {
		return &DecodeError{Format: format.Binary, Reason: fmt.Sprintf("unsupported version %d", hdr[2])}
	}

	switch m := v.(type) {
	case *message.Call:
		if hdr[3] != markerCall {
			return &DecodeError{Format: format.Binary, Reason: "envelope is not a call"}
		}
		err = readCall(r, m)
	case *message.Result:
		if hdr[3] != markerResult {
			return &DecodeError{Format: format.Binary, Reason: "envelope is not a result"}
		}
		err = readResult(r, m)
	default:
		return envelopeTypeError(format.Binary, v)
	}
	if err != nil {
		return err
	}
	if r.off != len(r.data) {
		return &DecodeError{Format: format.Binary, Reason: fmt.Sprintf("%d trailing bytes", len(r.data)-r.off)}
	}
	return nil
}

func readCall(r *binReader, m *message.Call) error {
	method, err := r.str16()
	if err != nil {
		return err
	}
	seq, err := r.u32()
	if err != nil {
		return err
	}
	argc, err := r.u16()
	if err != nil {
		return err
	}
	args := make([]message.Value, 0, min(int(argc), 64))
	for i := 0; i < int(argc); i++ {
		a, err := readValue(r, 0)
		if err != nil {
			return err
		}
		args = append(args, a)
	}
	m.Method = method
	m.Seq = int32(seq)
	if len(args) == 0 {
		args = nil
	}
	m.Args = args
	return nil
}

func readResult(r *binReader, m *message.Result) error {
	seq, err := r.u32()
	if err != nil {
		return err
	}
	flag, err := r.u8()
	if err != nil {
		return err
	}
	m.Seq = int32(seq)
	switch flag {
	case flagValue:
		m.Value, err = readValue(r, 0)
		m.Exc = nil
		return err
	case flagException:
		m.Value = message.Null()
		m.Exc, err = readException(r)
		return err
	}
	return &DecodeError{Format: format.Binary, Reason: fmt.Sprintf("unknown result flag %d", flag)}
}

func readException(r *binReader) (*message.Exception, error) {
	name, err := r.str16()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &DecodeError{Format: format.Binary, Reason: "exception without a name"}
	}
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	exc := &message.Exception{Name: name}
	if count > 0 {
		exc.Fields = make(map[string]message.Value, min(int(count), 64))
	}
	for i := 0; i < int(count); i++ {
		key, err := r.str16()
		if err != nil {
			return nil, err
		}
		fv, err := readValue(r, 0)
		if err != nil {
			return nil, err
		}
		exc.Fields[key] = fv
	}
	return exc, nil
}

func readValue(r *binReader, depth int) (message.Value, error) {
	if depth > maxValueDepth {
		return message.Value{}, &DecodeError{Format: format.Binary, Reason: "value nesting too deep"}
	}
	kind, err := r.u8()
	if err != nil {
		return message.Value{}, err
	}
	switch message.Kind(kind) {
	case message.KindNull:
		return message.Null(), nil
	case message.KindBool:
		b, err := r.u8()
		if err != nil {
			return message.Value{}, err
		}
		if b > 1 {
			return message.Value{}, &DecodeError{Format: format.Binary, Reason: fmt.Sprintf("bad bool byte %d", b)}
		}
		return message.Bool(b == 1), nil
	case message.KindI64:
		u, err := r.u64()
		if err != nil {
			return message.Value{}, err
		}
		return message.Int(int64(u)), nil
	case message.KindF64:
		u, err := r.u64()
		if err != nil {
			return message.Value{}, err
		}
		return message.Float(math.Float64frombits(u)), nil
	case message.KindString:
		b, err := r.blob32()
		if err != nil {
			return message.Value{}, err
		}
		return message.String(string(b)), nil
	case message.KindBytes:
		b, err := r.blob32()
		if err != nil {
			return message.Value{}, err
		}
		return message.Bytes(append([]byte(nil), b...)), nil
	case message.KindList:
		count, err := r.u16()
		if err != nil {
			return message.Value{}, err
		}
		list := make([]message.Value, 0, min(int(count), 64))
		for i := 0; i < int(count); i++ {
			e, err := readValue(r, depth+1)
			if err != nil {
				return message.Value{}, err
			}
			list = append(list, e)
		}
		return message.Value{Kind: message.KindList, List: list}, nil
	}
	return message.Value{}, &DecodeError{Format: format.Binary, Reason: fmt.Sprintf("unknown value kind %d", kind)}
}

// binReader walks a byte slice with bounds checks so truncated or hostile
// payloads fail with a DecodeError instead of a panic.
type binReader struct {
	data []byte
	off  int
}

var errTruncated = &DecodeError{Format: format.Binary, Reason: "truncated payload"}

func (r *binReader) take(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.off < n {
		return nil, errTruncated
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *binReader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *binReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *binReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *binReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// str16 reads a 2-byte length followed by that many bytes.
func (r *binReader) str16() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// blob32 reads a 4-byte length followed by that many bytes. The length is
// checked against maxBlobLen before anything is allocated.
func (r *binReader) blob32() ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n > maxBlobLen {
		return nil, &DecodeError{Format: format.Binary, Reason: fmt.Sprintf("blob length %d exceeds limit", n)}
	}
	return r.take(int(n))
}
