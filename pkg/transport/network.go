package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/openfli/fli-go/pkg/proto"
)

// networkMaxTransfer bounds single network reads/writes.
const networkMaxTransfer = 1024

// networkDialTimeout bounds the TCP connect.
const networkDialTimeout = 5 * time.Second

// Network is the stub passthrough for the INET domain: it opens a TCP
// channel to a device server speaking the same framing contract.
// Remote device access is otherwise not designed here; in particular
// there is no enumeration.
type Network struct{}

// NewNetwork creates the network stub transport.
func NewNetwork() *Network {
	return &Network{}
}

// Scan is not supported for the network domain; the snapshot is empty.
func (t *Network) Scan() ([]Record, error) {
	return nil, nil
}

// ValidateAddress checks the host:port syntax.
func (t *Network) ValidateAddress(address string) error {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return fmt.Errorf("%w: network address %q is not host:port: %v",
			proto.ErrInvalidArgument, address, err)
	}
	return nil
}

// Connect dials the device server.
func (t *Network) Connect(address string) (Session, error) {
	if err := t.ValidateAddress(address); err != nil {
		return nil, err
	}
	conn, err := net.DialTimeout("tcp", address, networkDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("network connect %s: %w: %v", address, proto.ErrNotFound, err)
	}
	return &networkSession{conn: conn}, nil
}

type networkSession struct {
	conn net.Conn
}

func (s *networkSession) Write(p []byte) (int, error) {
	n, err := s.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", proto.ErrIO, err)
	}
	return n, nil
}

func (s *networkSession) Read(p []byte, timeout time.Duration) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("%w: set read deadline: %v", proto.ErrIO, err)
	}

	n, err := s.conn.Read(p)
	if err != nil {
		var nerr net.Error
		if (errors.As(err, &nerr) && nerr.Timeout()) || errors.Is(err, os.ErrDeadlineExceeded) {
			return n, fmt.Errorf("network read: %w", proto.ErrTimeout)
		}
		return n, fmt.Errorf("%w: %v", proto.ErrIO, err)
	}
	return n, nil
}

func (s *networkSession) MaxTransferSize() int {
	return networkMaxTransfer
}

func (s *networkSession) Close() error {
	return s.conn.Close()
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*Network)(nil)
	_ Session   = (*networkSession)(nil)
)
