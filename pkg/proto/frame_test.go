package proto

import (
	"bytes"
	"errors"
	"testing"
)

func TestRequestEncode(t *testing.T) {
	req := Request{Op: OpSetBinning, Payload: []byte{2, 4}}
	buf, err := req.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := []byte{byte(OpSetBinning), 0x00, 0x02, 2, 4}
	if !bytes.Equal(buf, want) {
		t.Errorf("Encode() = %x, want %x", buf, want)
	}
}

func TestRequestEncodeOversized(t *testing.T) {
	req := Request{Op: OpExpose, Payload: make([]byte, MaxPayloadSize+1)}
	if _, err := req.Encode(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Encode() error = %v, want ErrInvalidArgument", err)
	}
}

func TestDecodeRequestRoundTrip(t *testing.T) {
	buf, err := Request{Op: OpStep, Payload: []byte{0, 0, 1, 0}}.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	req, consumed, err := DecodeRequest(buf)
	if err != nil {
		t.Fatalf("DecodeRequest() error: %v", err)
	}
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
	if req.Op != OpStep {
		t.Errorf("Op = %s, want %s", req.Op, OpStep)
	}
	if !bytes.Equal(req.Payload, []byte{0, 0, 1, 0}) {
		t.Errorf("Payload = %x", req.Payload)
	}
}

func TestDecodeRequestIncremental(t *testing.T) {
	buf, err := Request{Op: OpGrabRow, Payload: []byte{0x01, 0x00}}.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	// Every strict prefix is incomplete.
	for i := 0; i < len(buf); i++ {
		_, consumed, err := DecodeRequest(buf[:i])
		if err != nil {
			t.Fatalf("DecodeRequest(%d bytes) error: %v", i, err)
		}
		if consumed != 0 {
			t.Errorf("DecodeRequest(%d bytes) consumed %d, want 0", i, consumed)
		}
	}

	// Trailing bytes beyond the frame are left alone.
	extra := append(append([]byte{}, buf...), 0xaa, 0xbb)
	_, consumed, err := DecodeRequest(extra)
	if err != nil {
		t.Fatalf("DecodeRequest() error: %v", err)
	}
	if consumed != len(buf) {
		t.Errorf("consumed = %d, want %d", consumed, len(buf))
	}
}

func TestResponseHeaderRoundTrip(t *testing.T) {
	buf, err := Response{Op: OpHome, Status: StatusHardwareFault}.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	op, status, payloadLen, err := ParseResponseHeader(buf)
	if err != nil {
		t.Fatalf("ParseResponseHeader() error: %v", err)
	}
	if op != OpHome || status != StatusHardwareFault || payloadLen != 0 {
		t.Errorf("header = (%s, %s, %d)", op, status, payloadLen)
	}
}

func TestParseResponseHeaderShort(t *testing.T) {
	if _, _, _, err := ParseResponseHeader([]byte{1, 2}); !errors.Is(err, ErrProtocol) {
		t.Errorf("error = %v, want ErrProtocol", err)
	}
}

func TestStatusErrMapping(t *testing.T) {
	tests := []struct {
		status Status
		want   error
	}{
		{StatusOK, nil},
		{StatusNotFound, ErrNotFound},
		{StatusBusy, ErrBusy},
		{StatusInvalidState, ErrInvalidState},
		{StatusInvalidArgument, ErrInvalidArgument},
		{StatusHardwareFault, ErrHardwareFault},
		{Status(0x7f), ErrProtocol},
	}

	for _, tt := range tests {
		err := tt.status.Err()
		if tt.want == nil {
			if err != nil {
				t.Errorf("Status(%d).Err() = %v, want nil", tt.status, err)
			}
			continue
		}
		if !errors.Is(err, tt.want) {
			t.Errorf("Status(%d).Err() = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestPayloadWriterReader(t *testing.T) {
	var w PayloadWriter
	w.U8(7).U16(0x0102).U32(0xdeadbeef).I32(-42).AppendString("Ha")
	p := w.Payload()

	r := NewPayloadReader(p)
	if got := r.U8(); got != 7 {
		t.Errorf("U8() = %d", got)
	}
	if got := r.U16(); got != 0x0102 {
		t.Errorf("U16() = %#x", got)
	}
	if got := r.U32(); got != 0xdeadbeef {
		t.Errorf("U32() = %#x", got)
	}
	if got := r.I32(); got != -42 {
		t.Errorf("I32() = %d", got)
	}
	if got := r.String(); got != "Ha" {
		t.Errorf("String() = %q", got)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d", r.Remaining())
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestPayloadReaderTruncation(t *testing.T) {
	r := NewPayloadReader([]byte{0x01})
	r.U32()
	if got := r.U8(); got != 0 {
		t.Errorf("U8() after error = %d, want 0", got)
	}
	if !errors.Is(r.Err(), ErrProtocol) {
		t.Errorf("Err() = %v, want ErrProtocol", r.Err())
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	id := Identity{Class: ClassFocuser, HWRevision: 0x0102, FWRevision: 0x0304, Model: "DF-2"}
	got, err := ParseIdentity(id.Encode())
	if err != nil {
		t.Fatalf("ParseIdentity() error: %v", err)
	}
	if got != id {
		t.Errorf("ParseIdentity() = %+v, want %+v", got, id)
	}
}
