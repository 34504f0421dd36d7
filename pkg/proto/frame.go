package proto

import (
	"encoding/binary"
	"fmt"
)

// Frame header sizes.
const (
	// RequestHeaderSize is opcode(1) + payloadLen(2).
	RequestHeaderSize = 3

	// ResponseHeaderSize is opcode(1) + status(1) + payloadLen(2).
	ResponseHeaderSize = 4

	// MaxPayloadSize is the largest payload a single frame can carry.
	MaxPayloadSize = 0xffff
)

// Request is a single logical command: opcode plus fixed/variable payload.
// A request is constructed per call, serialized to transport bytes and
// discarded once the matching response is consumed.
type Request struct {
	Op      Opcode
	Payload []byte
}

// Encode serializes the request to transport bytes.
func (r Request) Encode() ([]byte, error) {
	if len(r.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload %d exceeds %d bytes",
			ErrInvalidArgument, len(r.Payload), MaxPayloadSize)
	}
	buf := make([]byte, RequestHeaderSize+len(r.Payload))
	buf[0] = byte(r.Op)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(r.Payload)))
	copy(buf[RequestHeaderSize:], r.Payload)
	return buf, nil
}

// DecodeRequest parses transport bytes into a request. Used by device-side
// implementations (the simulator); the host side only encodes requests.
// Returns the request and the number of bytes consumed, or (zero, 0) if
// data does not yet hold a complete frame.
func DecodeRequest(data []byte) (Request, int, error) {
	if len(data) < RequestHeaderSize {
		return Request{}, 0, nil
	}
	n := int(binary.BigEndian.Uint16(data[1:3]))
	total := RequestHeaderSize + n
	if len(data) < total {
		return Request{}, 0, nil
	}
	req := Request{Op: Opcode(data[0])}
	if n > 0 {
		req.Payload = make([]byte, n)
		copy(req.Payload, data[RequestHeaderSize:total])
	}
	return req, total, nil
}

// Response is the device's answer to a request.
type Response struct {
	Op      Opcode
	Status  Status
	Payload []byte
}

// Encode serializes the response to transport bytes.
func (r Response) Encode() ([]byte, error) {
	if len(r.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload %d exceeds %d bytes",
			ErrInvalidArgument, len(r.Payload), MaxPayloadSize)
	}
	buf := make([]byte, ResponseHeaderSize+len(r.Payload))
	buf[0] = byte(r.Op)
	buf[1] = byte(r.Status)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(r.Payload)))
	copy(buf[ResponseHeaderSize:], r.Payload)
	return buf, nil
}

// ParseResponseHeader decodes a response header.
func ParseResponseHeader(hdr []byte) (op Opcode, status Status, payloadLen int, err error) {
	if len(hdr) < ResponseHeaderSize {
		return 0, 0, 0, fmt.Errorf("%w: short response header (%d bytes)", ErrProtocol, len(hdr))
	}
	return Opcode(hdr[0]), Status(hdr[1]), int(binary.BigEndian.Uint16(hdr[2:4])), nil
}
