// Package transport provides byte-level command/response transports for
// FLI hardware.
//
// A Transport discovers devices on one physical medium and opens
// sessions to them; a Session moves raw bytes with a bounded read
// timeout. Everything above this layer (framing, chunking, retry,
// device state) lives in pkg/proto and the device-class packages.
//
// # Backends
//
//   - USB (canonical): bulk-endpoint I/O via github.com/google/gousb.
//   - Serial: 19200 or legacy 1200 baud via go.bug.st/serial.
//   - Parallel port: thin byte pokes against /dev/parportN.
//   - Network (INET): stub TCP passthrough; enumeration not supported.
//
// Scan results are a snapshot, not a live view: records can go stale
// when hardware is unplugged, and ordering follows the underlying
// subsystem, which is not guaranteed stable across scans.
package transport
