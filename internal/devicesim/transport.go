package devicesim

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openfli/fli-go/pkg/proto"
	"github.com/openfli/fli-go/pkg/transport"
)

// defaultMaxTransfer keeps simulated transfers small so engine
// chunking runs on every exchange.
const defaultMaxTransfer = 64

// addressPrefix prefixes every simulated address.
const addressPrefix = "sim:"

// Transport holds simulated devices keyed by address and satisfies
// transport.Transport, so it can be registered with a Registry like
// any hardware transport.
type Transport struct {
	mu      sync.Mutex
	devices map[string]*Device
}

// NewTransport creates an empty simulated bus.
func NewTransport() *Transport {
	return &Transport{devices: make(map[string]*Device)}
}

// Add plugs a device built from the profile into the bus under the
// given name; the resulting address is "sim:<name>".
func (t *Transport) Add(name string, p Profile) (*Device, error) {
	dev, err := NewDevice(p)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.devices[addressPrefix+name] = dev
	return dev, nil
}

// Remove unplugs the device at the address.
func (t *Transport) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.devices, addressPrefix+name)
}

// Scan lists the simulated devices in address order.
func (t *Transport) Scan() ([]transport.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	addrs := make([]string, 0, len(t.devices))
	for addr := range t.devices {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	records := make([]transport.Record, 0, len(addrs))
	for _, addr := range addrs {
		dev := t.devices[addr]
		records = append(records, transport.Record{
			Address: addr,
			Name:    dev.profile.Model,
			Class:   dev.class,
		})
	}
	return records, nil
}

// ValidateAddress checks the "sim:" address syntax.
func (t *Transport) ValidateAddress(address string) error {
	if !strings.HasPrefix(address, addressPrefix) || address == addressPrefix {
		return fmt.Errorf("%w: simulated address %q must have the form sim:<name>",
			proto.ErrInvalidArgument, address)
	}
	return nil
}

// Connect opens a session to the device at the address.
func (t *Transport) Connect(address string) (transport.Session, error) {
	if err := t.ValidateAddress(address); err != nil {
		return nil, err
	}

	t.mu.Lock()
	dev, ok := t.devices[address]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("sim connect %s: %w", address, proto.ErrNotFound)
	}

	maxTransfer := dev.profile.MaxTransfer
	if maxTransfer <= 0 {
		maxTransfer = defaultMaxTransfer
	}
	return &Session{dev: dev, maxTransfer: maxTransfer}, nil
}

// Session is one connection to a simulated device. Request bytes
// accumulate until they form a complete frame; the response is encoded
// into the read buffer for the host to drain.
type Session struct {
	dev         *Device
	maxTransfer int

	mu      sync.Mutex
	pending []byte
	readBuf []byte
	closed  bool
}

// Write feeds request bytes to the device.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("sim write: %w: session closed", proto.ErrIO)
	}

	s.pending = append(s.pending, p...)
	for {
		req, consumed, err := proto.DecodeRequest(s.pending)
		if err != nil || consumed == 0 {
			break
		}
		s.pending = s.pending[consumed:]

		resp := s.dev.handle(req)
		frame, err := resp.Encode()
		if err != nil {
			return len(p), fmt.Errorf("sim write: %w", err)
		}
		s.readBuf = append(s.readBuf, frame...)
	}
	return len(p), nil
}

// Read drains response bytes, blocking up to timeout for a response to
// arrive.
func (s *Session) Read(p []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.readBuf) == 0 {
		if s.closed {
			return 0, io.EOF
		}
		if !time.Now().Before(deadline) {
			return 0, fmt.Errorf("sim read: %w", proto.ErrTimeout)
		}
		s.mu.Unlock()
		time.Sleep(time.Millisecond)
		s.mu.Lock()
	}

	n := len(p)
	if n > s.maxTransfer {
		n = s.maxTransfer
	}
	if n > len(s.readBuf) {
		n = len(s.readBuf)
	}
	copy(p, s.readBuf[:n])
	s.readBuf = s.readBuf[n:]
	return n, nil
}

// MaxTransferSize reports the simulated endpoint's transfer cap.
func (s *Session) MaxTransferSize() int {
	return s.maxTransfer
}

// Close shuts the session; blocked reads return.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ transport.Transport = (*Transport)(nil)
	_ transport.Session   = (*Session)(nil)
)
