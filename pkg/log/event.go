package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the transport session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates byte flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Level classifies the event severity (FLIDEBUG-style mask bit).
	Level Level `cbor:"5,keyasint"`

	// Address is the transport address of the device, when known.
	Address string `cbor:"6,keyasint,omitempty"`

	// Opcode is the command mnemonic for protocol-layer events.
	Opcode string `cbor:"7,keyasint,omitempty"`

	// Status is the device status mnemonic for completed exchanges.
	Status string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (at most one of these is set).
	Frame *FrameEvent       `cbor:"9,keyasint,omitempty"`  // transport layer
	State *StateChangeEvent `cbor:"10,keyasint,omitempty"` // state machines
	Error *ErrorEvent       `cbor:"11,keyasint,omitempty"` // errors at any layer
}

// Direction indicates the direction of byte flow.
type Direction uint8

const (
	// DirectionIn indicates bytes received from the device.
	DirectionIn Direction = 0
	// DirectionOut indicates bytes sent to the device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the byte-level transport (raw frames).
	LayerTransport Layer = 0
	// LayerProtocol is the command/response engine.
	LayerProtocol Layer = 1
	// LayerDevice is the device-class state machine layer.
	LayerDevice Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerProtocol:
		return "PROTOCOL"
	case LayerDevice:
		return "DEVICE"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the full frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures state machine transitions.
type StateChangeEvent struct {
	// Entity is the state machine that changed ("camera", "motion",
	// "handle").
	Entity string `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEvent captures errors at any layer.
type ErrorEvent struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
