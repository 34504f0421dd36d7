package proto

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/openfli/fli-go/pkg/log"
)

// DefaultExchangeTimeout bounds the response read for ordinary commands.
// Long-running synchronous operations (motion completion, bulk readout)
// pass their own bound through ExchangeTimeout.
const DefaultExchangeTimeout = 2 * time.Second

// MaxLogFrameDataSize is the maximum frame data size to include in log
// events. Larger frames are truncated in the event to bound memory use.
const MaxLogFrameDataSize = 4096

// Session is the byte-level transport contract the engine consumes.
// transport.Session satisfies it.
type Session interface {
	// Write sends bytes to the device's outbound endpoint.
	Write(p []byte) (int, error)

	// Read fills p from the device's inbound endpoint, blocking at most
	// timeout. A timeout surfaces as an error wrapping ErrTimeout.
	Read(p []byte, timeout time.Duration) (int, error)

	// MaxTransferSize is the endpoint's maximum transfer size. Writes
	// and reads larger than this are chunked by the engine.
	MaxTransferSize() int
}

// Engine frames logical commands into transport bytes, parses responses
// and maps transport failures into the unified error taxonomy. One
// engine drives one session; exchanges on a single engine are
// serialized, preserving issue order on the underlying channel.
type Engine struct {
	mu      sync.Mutex
	session Session
	timeout time.Duration

	logger  log.Logger
	connID  string
	address string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a protocol event logger. connID identifies the
// session and address the device in emitted events.
func WithLogger(logger log.Logger, connID, address string) EngineOption {
	return func(e *Engine) {
		e.logger = logger
		e.connID = connID
		e.address = address
	}
}

// WithExchangeTimeout overrides the default response read bound.
func WithExchangeTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// NewEngine creates an engine over the given session.
func NewEngine(session Session, opts ...EngineOption) *Engine {
	e := &Engine{
		session: session,
		timeout: DefaultExchangeTimeout,
		logger:  log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NoopLogger{}
	}
	return e
}

// Exchange performs one command/response round trip with the default
// response bound.
func (e *Engine) Exchange(op Opcode, payload []byte) ([]byte, error) {
	return e.ExchangeTimeout(op, payload, e.timeout)
}

// ExchangeTimeout performs one command/response round trip, waiting up
// to timeout for the response. The returned payload belongs to the
// caller. A device-reported error status is returned as its taxonomy
// sentinel; the response payload is discarded in that case.
func (e *Engine) ExchangeTimeout(op Opcode, payload []byte, timeout time.Duration) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, err := Request{Op: op, Payload: payload}.Encode()
	if err != nil {
		return nil, err
	}

	if err := e.writeChunked(req); err != nil {
		e.logError(op, err, "write request")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	e.logFrame(op, log.DirectionOut, len(req))

	hdr, err := e.readFull(ResponseHeaderSize, timeout, false)
	if err != nil {
		e.logError(op, err, "read response header")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	respOp, status, payloadLen, err := ParseResponseHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if respOp != op {
		err = fmt.Errorf("%w: response opcode %s does not match request %s",
			ErrProtocol, respOp, op)
		e.logError(op, err, "opcode check")
		return nil, err
	}

	var resp []byte
	if payloadLen > 0 {
		// A truncated payload is surfaced immediately, never retried:
		// retrying a partially consumed response risks data corruption.
		resp, err = e.readFull(payloadLen, timeout, true)
		if err != nil {
			e.logError(op, err, "read response payload")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	e.logFrame(op, log.DirectionIn, ResponseHeaderSize+payloadLen)

	if serr := status.Err(); serr != nil {
		e.logStatus(op, status)
		return nil, fmt.Errorf("%s: device reported %s: %w", op, status, serr)
	}
	return resp, nil
}

// writeChunked writes buf in transfer-sized chunks. A short write is
// retried once with the remaining bytes before surfacing ErrIO.
func (e *Engine) writeChunked(buf []byte) error {
	chunkSize := e.session.MaxTransferSize()
	if chunkSize <= 0 {
		chunkSize = len(buf)
	}

	for off := 0; off < len(buf); {
		end := off + chunkSize
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[off:end]

		n, err := e.session.Write(chunk)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		if n < len(chunk) {
			e.logWarn(fmt.Sprintf("short write (%d of %d bytes), retrying remainder", n, len(chunk)))
			m, err := e.session.Write(chunk[n:])
			if err != nil || n+m < len(chunk) {
				return fmt.Errorf("%w: short write after retry (%d of %d bytes)",
					ErrIO, n+m, len(chunk))
			}
		}
		off = end
	}
	return nil
}

// readFull reads exactly n bytes, reassembling across chunk boundaries.
// With partial set, any failure after the first byte is a truncation
// (ErrProtocol); otherwise a clean timeout at offset zero is ErrTimeout.
func (e *Engine) readFull(n int, timeout time.Duration, partial bool) ([]byte, error) {
	buf := make([]byte, n)
	chunkSize := e.session.MaxTransferSize()
	if chunkSize <= 0 {
		chunkSize = n
	}

	for off := 0; off < n; {
		end := off + chunkSize
		if end > n {
			end = n
		}

		m, err := e.session.Read(buf[off:end], timeout)
		off += m
		if err != nil {
			if (partial || off > 0) && off < n {
				return nil, fmt.Errorf("%w: truncated response (%d of %d bytes): %v",
					ErrProtocol, off, n, err)
			}
			if errors.Is(err, ErrTimeout) {
				return nil, err
			}
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: session closed", ErrIO)
			}
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		if m == 0 {
			return nil, fmt.Errorf("%w: empty read at offset %d", ErrIO, off)
		}
	}
	return buf, nil
}

func (e *Engine) logFrame(op Opcode, dir log.Direction, size int) {
	e.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: e.connID,
		Address:      e.address,
		Direction:    dir,
		Layer:        log.LayerProtocol,
		Level:        log.LevelIO,
		Opcode:       op.String(),
		Frame:        &log.FrameEvent{Size: size},
	})
}

func (e *Engine) logStatus(op Opcode, status Status) {
	e.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: e.connID,
		Address:      e.address,
		Direction:    log.DirectionIn,
		Layer:        log.LayerProtocol,
		Level:        log.LevelFail,
		Opcode:       op.String(),
		Status:       status.String(),
	})
}

func (e *Engine) logError(op Opcode, err error, context string) {
	e.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: e.connID,
		Address:      e.address,
		Layer:        log.LayerProtocol,
		Level:        log.LevelFail,
		Opcode:       op.String(),
		Error:        &log.ErrorEvent{Layer: log.LayerProtocol, Message: err.Error(), Context: context},
	})
}

func (e *Engine) logWarn(msg string) {
	e.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: e.connID,
		Address:      e.address,
		Layer:        log.LayerProtocol,
		Level:        log.LevelWarn,
		Error:        &log.ErrorEvent{Layer: log.LayerProtocol, Message: msg},
	})
}
