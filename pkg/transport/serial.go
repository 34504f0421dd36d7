package transport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/openfli/fli-go/pkg/proto"
)

// Serial baud rates for the two serial domains.
const (
	// SerialBaud is the standard serial link rate.
	SerialBaud = 19200

	// SerialBaudLegacy is the legacy low-baud link rate.
	SerialBaudLegacy = 1200
)

// serialMaxTransfer bounds single serial reads/writes. The devices'
// UART buffers are small; larger transfers are chunked by the engine.
const serialMaxTransfer = 64

// Serial connects FLI devices over RS-232. Addresses are port paths
// ("/dev/ttyUSB0", "COM3"). Device class cannot be told apart without
// connecting, so scan records carry ClassUnknown and the registry's
// identify handshake resolves the class at open time.
type Serial struct {
	baud int
}

// NewSerial creates the serial transport at the standard baud rate.
func NewSerial() *Serial {
	return &Serial{baud: SerialBaud}
}

// NewSerialBaud creates a serial transport at an explicit baud rate
// (SerialBaud or SerialBaudLegacy).
func NewSerialBaud(baud int) *Serial {
	return &Serial{baud: baud}
}

// Scan lists the host's serial ports. Every port is a candidate; the
// scan cannot tell whether an FLI device answers without opening it.
func (t *Serial) Scan() ([]Record, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serial scan: %w: %v", proto.ErrIO, err)
	}

	records := make([]Record, 0, len(ports))
	for _, port := range ports {
		records = append(records, Record{
			Address: port,
			Name:    fmt.Sprintf("serial port %s", port),
			Class:   proto.ClassUnknown,
		})
	}
	return records, nil
}

// ValidateAddress checks the port path syntax.
func (t *Serial) ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty serial port path", proto.ErrInvalidArgument)
	}
	if !strings.HasPrefix(address, "/dev/") && !strings.HasPrefix(address, "COM") {
		return fmt.Errorf("%w: serial address %q is not a port path",
			proto.ErrInvalidArgument, address)
	}
	return nil
}

// Connect opens the serial port in 8N1 mode at the transport's baud rate.
func (t *Serial) Connect(address string) (Session, error) {
	if err := t.ValidateAddress(address); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: t.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(address, mode)
	if err != nil {
		return nil, fmt.Errorf("serial connect %s: %w: %v", address, proto.ErrNotFound, err)
	}
	return &serialSession{port: port}, nil
}

type serialSession struct {
	port serial.Port
}

func (s *serialSession) Write(p []byte) (int, error) {
	n, err := s.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", proto.ErrIO, err)
	}
	return n, nil
}

func (s *serialSession) Read(p []byte, timeout time.Duration) (int, error) {
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("%w: set read timeout: %v", proto.ErrIO, err)
	}

	n, err := s.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", proto.ErrIO, err)
	}
	if n == 0 {
		// go.bug.st/serial signals an expired read timeout with (0, nil).
		return 0, fmt.Errorf("serial read: %w", proto.ErrTimeout)
	}
	return n, nil
}

func (s *serialSession) MaxTransferSize() int {
	return serialMaxTransfer
}

func (s *serialSession) Close() error {
	return s.port.Close()
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*Serial)(nil)
	_ Session   = (*serialSession)(nil)
)
