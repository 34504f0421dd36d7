package transport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/openfli/fli-go/pkg/proto"
)

// parallelMaxTransfer keeps parallel-port exchanges byte-at-a-time, the
// granularity the legacy interface actually supports.
const parallelMaxTransfer = 1

// parallelPortPrefix is where Linux exposes parallel ports.
const parallelPortPrefix = "/dev/parport"

// Parallel connects legacy FLI devices over the parallel port. It is a
// thin byte-level transport sharing the same framing contract as USB;
// addresses are device paths ("/dev/parport0").
type Parallel struct{}

// NewParallel creates the parallel-port transport.
func NewParallel() *Parallel {
	return &Parallel{}
}

// Scan probes /dev/parport0..3 for present ports.
func (t *Parallel) Scan() ([]Record, error) {
	var records []Record
	for i := 0; i < 4; i++ {
		path := fmt.Sprintf("%s%d", parallelPortPrefix, i)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("parallel scan: %w: %v", proto.ErrIO, err)
		}
		records = append(records, Record{
			Address: path,
			Name:    fmt.Sprintf("parallel port %s", path),
			Class:   proto.ClassUnknown,
		})
	}
	return records, nil
}

// ValidateAddress checks the port path syntax.
func (t *Parallel) ValidateAddress(address string) error {
	if !strings.HasPrefix(address, parallelPortPrefix) {
		return fmt.Errorf("%w: parallel address %q is not a %sN path",
			proto.ErrInvalidArgument, address, parallelPortPrefix)
	}
	return nil
}

// Connect opens the parallel port device node.
func (t *Parallel) Connect(address string) (Session, error) {
	if err := t.ValidateAddress(address); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(address, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("parallel connect %s: %w: %v", address, proto.ErrNotFound, err)
	}
	return &parallelSession{f: f}, nil
}

type parallelSession struct {
	f *os.File
}

func (s *parallelSession) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", proto.ErrIO, err)
	}
	return n, nil
}

func (s *parallelSession) Read(p []byte, timeout time.Duration) (int, error) {
	if err := s.f.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("%w: set read deadline: %v", proto.ErrIO, err)
	}

	n, err := s.f.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, fmt.Errorf("parallel read: %w", proto.ErrTimeout)
		}
		return n, fmt.Errorf("%w: %v", proto.ErrIO, err)
	}
	return n, nil
}

func (s *parallelSession) MaxTransferSize() int {
	return parallelMaxTransfer
}

func (s *parallelSession) Close() error {
	return s.f.Close()
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*Parallel)(nil)
	_ Session   = (*parallelSession)(nil)
)
