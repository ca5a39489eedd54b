package codec

import (
	"encoding/binary"
	"testing"

	"github.com/strogo/armeria/message"
)

func encodeBinary(t *testing.T, v any) []byte {
	t.Helper()
	data, err := binaryCodec{}.Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// Every truncation of a valid envelope must fail cleanly, never panic.
func TestBinaryTruncation(t *testing.T) {
	data := encodeBinary(t, &message.Call{Method: "hello", Seq: 7, Args: []message.Value{
		message.String("Bob"),
		message.Int(42),
		message.Bool(true),
		message.Float(1.5),
		message.Bytes([]byte{1, 2, 3}),
		message.ListOf(message.Int(1), message.String("x")),
	}})
	for i := 0; i < len(data); i++ {
		var call message.Call
		if err := (binaryCodec{}).Decode(data[:i], &call); err == nil {
			t.Fatalf("prefix of %d/%d bytes decoded without error", i, len(data))
		}
	}
}

func TestBinaryHeaderValidation(t *testing.T) {
	data := encodeBinary(t, &message.Call{Method: "ping", Seq: 1})

	badMagic := append([]byte(nil), data...)
	badMagic[0] = 'z'
	var call message.Call
	if err := (binaryCodec{}).Decode(badMagic, &call); err == nil {
		t.Error("bad magic accepted")
	}

	badVersion := append([]byte(nil), data...)
	badVersion[2] = 99
	if err := (binaryCodec{}).Decode(badVersion, &call); err == nil {
		t.Error("unsupported version accepted")
	}

	badMarker := append([]byte(nil), data...)
	badMarker[3] = 7
	if err := (binaryCodec{}).Decode(badMarker, &call); err == nil {
		t.Error("unknown marker accepted")
	}
}

func TestBinaryOversizedBlobHeader(t *testing.T) {
	// Hand-build a call whose string argument claims 4 GiB.
	buf := []byte{binaryMagic0, binaryMagic1, binaryVersion, markerCall}
	buf = binary.BigEndian.AppendUint16(buf, 1)
	buf = append(buf, 'm')
	buf = binary.BigEndian.AppendUint32(buf, 1) // seq
	buf = binary.BigEndian.AppendUint16(buf, 1) // one arg
	buf = append(buf, byte(message.KindString))
	buf = binary.BigEndian.AppendUint32(buf, 0xFFFFFFFF)
	buf = append(buf, "short"...)

	var call message.Call
	err := (binaryCodec{}).Decode(buf, &call)
	if err == nil {
		t.Fatal("oversized blob header accepted")
	}
	if _, ok := err.(*DecodeError); !ok {
		t.Fatalf("error type %T", err)
	}
}

func TestBinaryBadBoolByte(t *testing.T) {
	data := encodeBinary(t, &message.Call{Method: "b", Seq: 1, Args: []message.Value{message.Bool(true)}})
	data[len(data)-1] = 7
	var call message.Call
	if err := (binaryCodec{}).Decode(data, &call); err == nil {
		t.Error("bool byte 7 accepted")
	}
}

func TestBinaryBadResultFlag(t *testing.T) {
	data := encodeBinary(t, message.Succeed(1, message.Null()))
	// flag byte sits right after the 4-byte header and 4-byte seq
	data[8] = 9
	var res message.Result
	if err := (binaryCodec{}).Decode(data, &res); err == nil {
		t.Error("unknown result flag accepted")
	}
}

func TestBinaryEncodeRejectsUnknownKind(t *testing.T) {
	call := &message.Call{Method: "x", Seq: 1, Args: []message.Value{{Kind: 99}}}
	if _, err := (binaryCodec{}).Encode(call); err == nil {
		t.Error("unknown kind encoded")
	}
}

func TestBinaryExceptionRoundTrip(t *testing.T) {
	want := message.Fail(12, message.NewException("QuotaExceeded", map[string]message.Value{
		"limit": message.Int(100),
		"used":  message.Int(101),
	}))
	data := encodeBinary(t, want)
	var got message.Result
	if err := (binaryCodec{}).Decode(data, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Errorf("got %+v, want %+v", &got, want)
	}
	if got.Value.Kind != message.KindNull {
		t.Errorf("exception result value kind = %v, want null", got.Value.Kind)
	}
}
