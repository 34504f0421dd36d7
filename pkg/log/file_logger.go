package log

import (
	"os"
	"sync"
)

// FileLogger appends events to a file as length-prefixed CBOR frames,
// the format Reader consumes. Safe for concurrent use; events arriving
// after Close are dropped.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewFileLogger opens the log file at path, creating it if needed, and
// appends new events to it.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f}, nil
}

// Log appends one event frame. The frame is built outside the lock and
// written with a single Write call, so concurrent events never
// interleave. Encode and write failures are dropped: logging must not
// disrupt the command exchange that produced the event.
func (l *FileLogger) Log(event Event) {
	frame, err := AppendEventFrame(nil, event)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_, _ = l.file.Write(frame)
}

// Close closes the log file. Closing twice is a no-op, and Log calls
// after Close are silently ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
