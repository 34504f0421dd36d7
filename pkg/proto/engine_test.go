package proto

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeSession is a scripted byte-level session for engine tests.
type fakeSession struct {
	maxTransfer int

	// writes records every Write call's bytes.
	writes [][]byte

	// shortWrites makes the next n Write calls accept one byte less
	// than offered.
	shortWrites int

	// response is served to Read calls; when exhausted, reads time out.
	response []byte
}

func (s *fakeSession) Write(p []byte) (int, error) {
	cp := append([]byte{}, p...)
	if s.shortWrites > 0 && len(p) > 0 {
		s.shortWrites--
		cp = cp[:len(cp)-1]
	}
	s.writes = append(s.writes, cp)
	return len(cp), nil
}

func (s *fakeSession) Read(p []byte, timeout time.Duration) (int, error) {
	if len(s.response) == 0 {
		return 0, fmt.Errorf("fake read: %w", ErrTimeout)
	}
	n := copy(p, s.response)
	s.response = s.response[n:]
	return n, nil
}

func (s *fakeSession) MaxTransferSize() int {
	return s.maxTransfer
}

// written concatenates all recorded writes.
func (s *fakeSession) written() []byte {
	var all []byte
	for _, w := range s.writes {
		all = append(all, w...)
	}
	return all
}

func respond(t *testing.T, op Opcode, status Status, payload []byte) []byte {
	t.Helper()
	buf, err := Response{Op: op, Status: status, Payload: payload}.Encode()
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	return buf
}

func TestExchangeRoundTrip(t *testing.T) {
	sess := &fakeSession{
		maxTransfer: 64,
		response:    respond(t, OpGetPosition, StatusOK, []byte{0x00, 0x00, 0x12, 0x34}),
	}
	eng := NewEngine(sess)

	resp, err := eng.Exchange(OpGetPosition, nil)
	if err != nil {
		t.Fatalf("Exchange() error: %v", err)
	}
	if !bytes.Equal(resp, []byte{0x00, 0x00, 0x12, 0x34}) {
		t.Errorf("payload = %x", resp)
	}

	wantReq, _ := Request{Op: OpGetPosition}.Encode()
	if !bytes.Equal(sess.written(), wantReq) {
		t.Errorf("request bytes = %x, want %x", sess.written(), wantReq)
	}
}

func TestExchangeChunksLargeRequest(t *testing.T) {
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	sess := &fakeSession{
		maxTransfer: 8,
		response:    respond(t, OpWriteEEPROM, StatusOK, nil),
	}
	eng := NewEngine(sess)

	if _, err := eng.Exchange(OpWriteEEPROM, payload); err != nil {
		t.Fatalf("Exchange() error: %v", err)
	}

	for i, w := range sess.writes {
		if len(w) > 8 {
			t.Errorf("write %d is %d bytes, exceeds transfer size 8", i, len(w))
		}
	}
	wantReq, _ := Request{Op: OpWriteEEPROM, Payload: payload}.Encode()
	if !bytes.Equal(sess.written(), wantReq) {
		t.Errorf("reassembled request does not match original")
	}
}

func TestExchangeChunksLargeResponse(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	sess := &fakeSession{
		maxTransfer: 16,
		response:    respond(t, OpGrabRow, StatusOK, payload),
	}
	eng := NewEngine(sess)

	resp, err := eng.Exchange(OpGrabRow, []byte{0x01, 0x2c})
	if err != nil {
		t.Fatalf("Exchange() error: %v", err)
	}
	if !bytes.Equal(resp, payload) {
		t.Errorf("reassembled response does not match")
	}
}

func TestExchangeShortWriteRetriedOnce(t *testing.T) {
	sess := &fakeSession{
		maxTransfer: 64,
		shortWrites: 1,
		response:    respond(t, OpHome, StatusOK, nil),
	}
	eng := NewEngine(sess)

	if _, err := eng.Exchange(OpHome, nil); err != nil {
		t.Fatalf("Exchange() error: %v", err)
	}
	if len(sess.writes) != 2 {
		t.Fatalf("got %d writes, want short write plus one retry", len(sess.writes))
	}

	wantReq, _ := Request{Op: OpHome}.Encode()
	if !bytes.Equal(sess.written(), wantReq) {
		t.Errorf("request bytes = %x, want %x", sess.written(), wantReq)
	}
}

func TestExchangePersistentShortWriteFails(t *testing.T) {
	sess := &fakeSession{
		maxTransfer: 64,
		shortWrites: 2,
	}
	eng := NewEngine(sess)

	_, err := eng.Exchange(OpHome, nil)
	if !errors.Is(err, ErrIO) {
		t.Errorf("Exchange() error = %v, want ErrIO", err)
	}
}

func TestExchangeOpcodeMismatch(t *testing.T) {
	sess := &fakeSession{
		maxTransfer: 64,
		response:    respond(t, OpGetPosition, StatusOK, nil),
	}
	eng := NewEngine(sess)

	_, err := eng.Exchange(OpGetExtent, nil)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Exchange() error = %v, want ErrProtocol", err)
	}
}

func TestExchangeTimeout(t *testing.T) {
	sess := &fakeSession{maxTransfer: 64}
	eng := NewEngine(sess)

	_, err := eng.Exchange(OpGetExtent, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Exchange() error = %v, want ErrTimeout", err)
	}
	if errors.Is(err, ErrProtocol) {
		t.Errorf("clean timeout before any response byte must not be a protocol error")
	}
}

func TestExchangeTruncatedPayload(t *testing.T) {
	// Header promises 10 payload bytes but only 4 arrive.
	full := respond(t, OpGrabRow, StatusOK, make([]byte, 10))
	sess := &fakeSession{
		maxTransfer: 64,
		response:    full[:ResponseHeaderSize+4],
	}
	eng := NewEngine(sess)

	_, err := eng.Exchange(OpGrabRow, nil)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Exchange() error = %v, want ErrProtocol", err)
	}
}

func TestExchangeTruncatedHeader(t *testing.T) {
	full := respond(t, OpGetExtent, StatusOK, nil)
	sess := &fakeSession{
		maxTransfer: 64,
		response:    full[:2],
	}
	eng := NewEngine(sess)

	// A partial header is a truncation, not a timeout: bytes arrived.
	_, err := eng.Exchange(OpGetExtent, nil)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Exchange() error = %v, want ErrProtocol", err)
	}
}

func TestExchangeDeviceStatusMapped(t *testing.T) {
	tests := []struct {
		status Status
		want   error
	}{
		{StatusNotFound, ErrNotFound},
		{StatusBusy, ErrBusy},
		{StatusInvalidState, ErrInvalidState},
		{StatusInvalidArgument, ErrInvalidArgument},
		{StatusHardwareFault, ErrHardwareFault},
	}

	for _, tt := range tests {
		sess := &fakeSession{
			maxTransfer: 64,
			response:    respond(t, OpStep, tt.status, nil),
		}
		eng := NewEngine(sess)

		_, err := eng.Exchange(OpStep, nil)
		if !errors.Is(err, tt.want) {
			t.Errorf("status %s: error = %v, want %v", tt.status, err, tt.want)
		}
	}
}
