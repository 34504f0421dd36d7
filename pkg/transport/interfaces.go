package transport

import (
	"time"

	"github.com/openfli/fli-go/pkg/proto"
)

// Record describes one device discovered by a scan.
type Record struct {
	// Address is the transport address used to open the device.
	Address string

	// Name is a human-readable device name.
	Name string

	// Class is the device class when the transport can tell it apart
	// without connecting (USB product IDs); ClassUnknown otherwise.
	Class proto.DeviceClass
}

// Transport discovers and connects devices on one physical medium.
type Transport interface {
	// Scan performs a fresh hardware scan and returns a snapshot of
	// reachable devices. Never served from a cache.
	Scan() ([]Record, error)

	// ValidateAddress checks address syntax without touching hardware.
	ValidateAddress(address string) error

	// Connect opens a session to the device at address. Returns an
	// error wrapping proto.ErrNotFound if nothing answers there.
	Connect(address string) (Session, error)
}

// Session is one open byte channel to a device. Sessions are a single
// logical channel: writes and reads complete in issue order.
type Session interface {
	// Write sends bytes to the device's outbound endpoint.
	Write(p []byte) (int, error)

	// Read fills p from the device's inbound endpoint, blocking at
	// most timeout. A timeout surfaces as an error wrapping
	// proto.ErrTimeout, distinct from other I/O failures.
	Read(p []byte, timeout time.Duration) (int, error)

	// MaxTransferSize is the endpoint's maximum transfer size.
	MaxTransferSize() int

	// Close releases the transport resources. Any blocked operation
	// is aborted.
	Close() error
}

// A transport.Session must be usable as the protocol engine's session.
var _ proto.Session = (Session)(nil)
