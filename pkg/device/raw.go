package device

import (
	"fmt"
	"time"

	"github.com/openfli/fli-go/pkg/proto"
)

// Raw passthrough: the IO port, EEPROM access and direct bulk
// transfers work on any opened device regardless of class.

// eepromChunk bounds one EEPROM exchange.
const eepromChunk = 256

// bulkIOTimeout bounds one direct bulk read.
const bulkIOTimeout = 5 * time.Second

// EEPROMArea selects which on-device EEPROM an access targets.
type EEPROMArea uint8

const (
	// EEPROMUser is the free-form user area.
	EEPROMUser EEPROMArea = 0

	// EEPROMPixelMap holds the factory defect pixel map.
	EEPROMPixelMap EEPROMArea = 1
)

// ReadIOPort returns the state of the device's auxiliary IO port.
func (r *Registry) ReadIOPort(h Handle) (uint8, error) {
	eng, err := r.engine(h)
	if err != nil {
		return 0, err
	}
	resp, err := eng.Exchange(proto.OpReadIOPort, nil)
	if err != nil {
		return 0, err
	}
	pr := proto.NewPayloadReader(resp)
	val := pr.U8()
	return val, pr.Err()
}

// WriteIOPort drives the device's auxiliary IO port output lines.
func (r *Registry) WriteIOPort(h Handle, value uint8) error {
	eng, err := r.engine(h)
	if err != nil {
		return err
	}
	var w proto.PayloadWriter
	w.U8(value)
	_, err = eng.Exchange(proto.OpWriteIOPort, w.Payload())
	return err
}

// ConfigureIOPort sets the IO port line directions; a set bit makes
// the line an output.
func (r *Registry) ConfigureIOPort(h Handle, direction uint8) error {
	eng, err := r.engine(h)
	if err != nil {
		return err
	}
	var w proto.PayloadWriter
	w.U8(direction)
	_, err = eng.Exchange(proto.OpConfigureIOPort, w.Payload())
	return err
}

// ReadEEPROM fills buf from the given EEPROM area starting at offset.
// Large reads are split into chunked exchanges.
func (r *Registry) ReadEEPROM(h Handle, area EEPROMArea, offset int, buf []byte) error {
	eng, err := r.engine(h)
	if err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("%w: negative EEPROM offset", proto.ErrInvalidArgument)
	}

	for done := 0; done < len(buf); {
		n := len(buf) - done
		if n > eepromChunk {
			n = eepromChunk
		}

		var w proto.PayloadWriter
		w.U8(uint8(area)).U16(uint16(offset + done)).U16(uint16(n))
		resp, err := eng.Exchange(proto.OpReadEEPROM, w.Payload())
		if err != nil {
			return err
		}
		if len(resp) != n {
			return fmt.Errorf("%w: EEPROM read returned %d bytes, expected %d",
				proto.ErrProtocol, len(resp), n)
		}
		copy(buf[done:], resp)
		done += n
	}
	return nil
}

// WriteEEPROM writes buf to the given EEPROM area starting at offset.
// Large writes are split into chunked exchanges.
func (r *Registry) WriteEEPROM(h Handle, area EEPROMArea, offset int, buf []byte) error {
	eng, err := r.engine(h)
	if err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("%w: negative EEPROM offset", proto.ErrInvalidArgument)
	}

	for done := 0; done < len(buf); {
		n := len(buf) - done
		if n > eepromChunk {
			n = eepromChunk
		}

		var w proto.PayloadWriter
		w.U8(uint8(area)).U16(uint16(offset + done)).Bytes(buf[done : done+n])
		if _, err := eng.Exchange(proto.OpWriteEEPROM, w.Payload()); err != nil {
			return err
		}
		done += n
	}
	return nil
}

// BulkWrite sends p straight to the device's outbound endpoint,
// bypassing the command framing. For diagnostics and firmware tools
// that speak their own format; mixing bulk transfers with framed
// commands on a live state machine corrupts the exchange stream.
func (r *Registry) BulkWrite(h Handle, p []byte) (int, error) {
	r.mu.Lock()
	s, err := r.lookup(h)
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return s.session.Write(p)
}

// BulkRead fills p straight from the device's inbound endpoint,
// bypassing the command framing.
func (r *Registry) BulkRead(h Handle, p []byte) (int, error) {
	r.mu.Lock()
	s, err := r.lookup(h)
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return s.session.Read(p, bulkIOTimeout)
}
