package log

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Log files hold a sequence of length-prefixed frames:
//
//	eventLen(4, big-endian) | event(eventLen, CBOR)
//
// The prefix bounds each event without decoding it and makes a
// truncated tail (a crash mid-write) detectable on read.

// frameLenSize is the size of the frame length prefix.
const frameLenSize = 4

// maxEventFrameSize bounds one encoded event. Events carry at most a
// truncated frame snippet, so anything larger is a corrupt prefix.
const maxEventFrameSize = 1 << 20

// eventEncMode encodes events deterministically with nanosecond
// timestamps, so identical events produce identical frames.
var eventEncMode cbor.EncMode

// eventDecMode tolerates frames written by newer revisions: unknown
// fields and duplicate keys are skipped, not rejected.
var eventDecMode cbor.DecMode

func init() {
	var err error

	eventEncMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: event encoder mode: %v", err))
	}

	eventDecMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: event decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes using integer keys for
// compactness.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// AppendEventFrame appends the event's length-prefixed frame to dst
// and returns the extended slice.
func AppendEventFrame(dst []byte, event Event) ([]byte, error) {
	body, err := EncodeEvent(event)
	if err != nil {
		return dst, err
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(body)))
	return append(dst, body...), nil
}

// ReadEventFrame reads one length-prefixed event frame from r. A clean
// end of stream at a frame boundary returns io.EOF; a frame cut short
// returns io.ErrUnexpectedEOF.
func ReadEventFrame(r io.Reader) (Event, error) {
	var hdr [frameLenSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Event{}, err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxEventFrameSize {
		return Event{}, fmt.Errorf("log: frame of %d bytes exceeds %d, corrupt prefix", n, maxEventFrameSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Event{}, err
	}
	return DecodeEvent(body)
}
