// Package proto implements the FLI command/response protocol engine.
//
// The engine turns a logical command (opcode plus fixed-width arguments)
// into a deterministic request/response exchange over a byte-level
// transport session, hiding chunking and retry policy from the
// device-class state machines built on top of it.
//
// # Frame Layout
//
// All numeric fields are fixed-width big-endian.
//
//	request : opcode(1) | payloadLen(2) | payload
//	response: opcode(1) | status(1) | payloadLen(2) | payload
//
// A response is accepted only if its opcode echoes the request opcode;
// a mismatch is a protocol error and is never silently ignored.
//
// # Error Taxonomy
//
// The engine maps transport failures and device status codes into the
// unified taxonomy shared by the whole library: ErrNotFound, ErrBusy,
// ErrInvalidState, ErrInvalidArgument, ErrTimeout, ErrIO, ErrProtocol
// and ErrHardwareFault.
package proto
