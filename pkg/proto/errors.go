package proto

import "errors"

// Unified error taxonomy. Every failure surfaced by the library wraps
// exactly one of these sentinels so callers can classify with errors.Is.
var (
	// ErrNotFound indicates no device matched the requested address or domain.
	ErrNotFound = errors.New("no matching device")

	// ErrBusy indicates the device is exclusively locked by another holder.
	ErrBusy = errors.New("device busy")

	// ErrInvalidState indicates the operation is not legal in the current
	// state machine state (for example configuring mid-exposure).
	ErrInvalidState = errors.New("operation invalid in current state")

	// ErrInvalidArgument indicates an out-of-range parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTimeout indicates a transport read or write exceeded its bound.
	ErrTimeout = errors.New("transport timeout")

	// ErrIO indicates a transport-level failure after the retry budget
	// was exhausted.
	ErrIO = errors.New("transport I/O failure")

	// ErrProtocol indicates a malformed or opcode-mismatched response.
	ErrProtocol = errors.New("protocol error")

	// ErrHardwareFault indicates the device reported an unrecoverable
	// mechanical or electrical condition.
	ErrHardwareFault = errors.New("hardware fault")
)

// Status is the device-reported status byte carried in every response.
type Status uint8

const (
	// StatusOK indicates the command completed successfully.
	StatusOK Status = 0

	// StatusNotFound indicates the addressed resource does not exist.
	StatusNotFound Status = 1

	// StatusBusy indicates the device cannot accept the command right now.
	StatusBusy Status = 2

	// StatusInvalidState indicates the command is not legal in the
	// device's current state.
	StatusInvalidState Status = 3

	// StatusInvalidArgument indicates a command argument was rejected.
	StatusInvalidArgument Status = 4

	// StatusHardwareFault indicates a mechanical or electrical fault.
	StatusHardwareFault Status = 5
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusBusy:
		return "BUSY"
	case StatusInvalidState:
		return "INVALID_STATE"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusHardwareFault:
		return "HARDWARE_FAULT"
	default:
		return "UNKNOWN"
	}
}

// Err maps a non-OK status to its taxonomy sentinel. Returns nil for
// StatusOK. Unknown status values map to ErrProtocol: a device speaking
// a newer revision of the protocol is indistinguishable from a corrupt
// response at this layer.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNotFound:
		return ErrNotFound
	case StatusBusy:
		return ErrBusy
	case StatusInvalidState:
		return ErrInvalidState
	case StatusInvalidArgument:
		return ErrInvalidArgument
	case StatusHardwareFault:
		return ErrHardwareFault
	default:
		return ErrProtocol
	}
}
