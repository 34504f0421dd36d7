package log

import (
	"bufio"
	"os"
	"time"
)

// Filter specifies criteria for filtering log events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// ConnectionID filters by exact connection ID match.
	ConnectionID string

	// Direction filters by byte-flow direction.
	Direction *Direction

	// Layer filters by capture layer.
	Layer *Layer

	// Level filters by severity mask (event level must intersect).
	Level Level

	// Opcode filters by command mnemonic.
	Opcode string

	// Address filters by device transport address.
	Address string

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// matches returns true if the event matches all filter criteria.
func (f *Filter) matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Level != LevelNone && event.Level&f.Level == 0 {
		return false
	}
	if f.Opcode != "" && event.Opcode != f.Opcode {
		return false
	}
	if f.Address != "" && event.Address != f.Address {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams protocol events back out of a FileLogger file,
// decoding one length-prefixed frame at a time so large session logs
// never load whole.
type Reader struct {
	file   *os.File
	br     *bufio.Reader
	filter Filter
}

// NewReader opens the log file at path for reading all its events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens the log file at path, yielding only events
// matching the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:   f,
		br:     bufio.NewReader(f),
		filter: filter,
	}, nil
}

// Next returns the next event that matches the filter. The end of the
// file surfaces as io.EOF; a file cut off mid-frame surfaces as
// io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	for {
		event, err := ReadEventFrame(r.br)
		if err != nil {
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
