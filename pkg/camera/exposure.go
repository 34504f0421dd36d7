package camera

import (
	"fmt"
	"time"

	"github.com/openfli/fli-go/pkg/proto"
)

// grabRowTimeout bounds one row readout. Rows are small but the device
// may stall shifting charge on large sensors.
const grabRowTimeout = 10 * time.Second

// Expose starts an exposure with the staged configuration, sent to the
// device as one atomic command. An active background flush stops. With
// an external-trigger shutter mode armed, the camera enters
// WaitingForTrigger instead of Exposing.
func (c *Camera) Expose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: cannot expose in state %s", proto.ErrInvalidState, c.state)
	}

	var w proto.PayloadWriter
	w.I32(c.area.ULX).I32(c.area.ULY).I32(c.area.LRX).I32(c.area.LRY)
	w.U8(uint8(c.hbin)).U8(uint8(c.vbin))
	w.U8(uint8(c.depth)).U8(uint8(c.frameType))
	w.U32(uint32(c.exposure.Milliseconds()))
	w.U16(uint16(c.nflushes))
	w.U8(uint8(c.shutter))

	if _, err := c.eng.Exchange(proto.OpExpose, w.Payload()); err != nil {
		return err
	}

	c.bgFlush = false
	dims := c.readoutDimensionsLocked()
	c.rowsLeft = dims.Height
	c.rowBytes = int(dims.Width) * c.depth.BytesPerPixel()

	if c.shutter.externalTrigger() {
		c.setState(StateWaitingForTrigger, "exposure armed")
	} else {
		c.setState(StateExposing, "exposure started")
	}
	return nil
}

// ExposureStatus returns the remaining exposure time the device
// reports. Zero means integration has finished; the state machine does
// not advance on its own, so the caller proceeds with EndExposure.
func (c *Camera) ExposureStatus() (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.eng.Exchange(proto.OpExposureStatus, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	ms := r.U32()
	if err := r.Err(); err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// TriggerExposure fires an armed external-trigger exposure from
// software, moving WaitingForTrigger to Exposing.
func (c *Camera) TriggerExposure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWaitingForTrigger {
		return fmt.Errorf("%w: no armed exposure to trigger in state %s",
			proto.ErrInvalidState, c.state)
	}
	if _, err := c.eng.Exchange(proto.OpTriggerExposure, nil); err != nil {
		return err
	}
	c.setState(StateExposing, "software trigger")
	return nil
}

// EndExposure stops integration and moves the camera to Reading. Rows
// then become available through GrabRow.
func (c *Camera) EndExposure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateExposing && c.state != StateWaitingForTrigger {
		return fmt.Errorf("%w: no exposure to end in state %s", proto.ErrInvalidState, c.state)
	}
	if _, err := c.eng.Exchange(proto.OpEndExposure, nil); err != nil {
		return err
	}
	c.setState(StateReading, "exposure ended")
	return nil
}

// CancelExposure aborts the in-progress exposure or readout and
// returns the camera to Idle. Any unread rows are discarded.
func (c *Camera) CancelExposure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return fmt.Errorf("%w: no exposure to cancel", proto.ErrInvalidState)
	}
	if _, err := c.eng.Exchange(proto.OpCancelExposure, nil); err != nil {
		return err
	}
	c.rowsLeft = 0
	c.rowBytes = 0
	c.setState(StateIdle, "exposure cancelled")
	return nil
}

// GrabRow reads the next row of the frame into buf and returns the
// number of bytes written. buf must hold at least RowBytes bytes. When
// the last row is consumed the camera returns to Idle.
func (c *Camera) GrabRow(buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReading {
		return 0, fmt.Errorf("%w: cannot grab row in state %s", proto.ErrInvalidState, c.state)
	}
	if c.rowsLeft <= 0 {
		return 0, fmt.Errorf("%w: no rows remaining", proto.ErrInvalidState)
	}
	if len(buf) < c.rowBytes {
		return 0, fmt.Errorf("%w: row buffer %d bytes, need %d",
			proto.ErrInvalidArgument, len(buf), c.rowBytes)
	}

	var w proto.PayloadWriter
	w.U16(uint16(c.rowBytes))
	resp, err := c.eng.ExchangeTimeout(proto.OpGrabRow, w.Payload(), grabRowTimeout)
	if err != nil {
		return 0, err
	}
	if len(resp) != c.rowBytes {
		return 0, fmt.Errorf("%w: row has %d bytes, expected %d",
			proto.ErrProtocol, len(resp), c.rowBytes)
	}
	copy(buf, resp)

	c.rowsLeft--
	if c.rowsLeft == 0 {
		c.setState(StateIdle, "readout complete")
	}
	return c.rowBytes, nil
}

// RowBytes returns the byte size of one row of the in-progress (or
// most recently configured) readout.
func (c *Camera) RowBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rowBytes != 0 {
		return c.rowBytes
	}
	dims := c.readoutDimensionsLocked()
	return int(dims.Width) * c.depth.BytesPerPixel()
}

// RowsRemaining returns the number of unread rows in the in-progress
// readout.
func (c *Camera) RowsRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.rowsLeft)
}

// FlushRow shifts rows out of the sensor repeat times without reading
// them back.
func (c *Camera) FlushRow(rows, repeat int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: cannot flush rows in state %s", proto.ErrInvalidState, c.state)
	}
	if rows < 0 || repeat < 0 {
		return fmt.Errorf("%w: negative flush count", proto.ErrInvalidArgument)
	}

	var w proto.PayloadWriter
	w.U32(uint32(rows)).U32(uint32(repeat))
	_, err := c.eng.Exchange(proto.OpFlushRow, w.Payload())
	return err
}

// ControlShutter opens, closes or arms the shutter. An active
// background flush stops. The armed mode also decides whether the next
// Expose waits for an external trigger.
func (c *Camera) ControlShutter(mode ShutterMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: cannot control shutter in state %s", proto.ErrInvalidState, c.state)
	}

	var w proto.PayloadWriter
	w.U8(uint8(mode))
	if _, err := c.eng.Exchange(proto.OpControlShutter, w.Payload()); err != nil {
		return err
	}
	c.shutter = mode
	c.bgFlush = false
	return nil
}

// ControlBackgroundFlush starts or stops continuous background
// flushing. Starting an exposure or controlling the shutter stops it
// implicitly.
func (c *Camera) ControlBackgroundFlush(start bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("%w: cannot change background flush in state %s",
			proto.ErrInvalidState, c.state)
	}

	var w proto.PayloadWriter
	if start {
		w.U8(1)
	} else {
		w.U8(0)
	}
	if _, err := c.eng.Exchange(proto.OpBackgroundFlush, w.Payload()); err != nil {
		return err
	}
	c.bgFlush = start
	return nil
}

// BackgroundFlushing reports whether a background flush is active.
func (c *Camera) BackgroundFlushing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bgFlush
}
