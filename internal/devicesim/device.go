package devicesim

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/openfli/fli-go/pkg/proto"
)

// stepRate is how fast simulated async moves progress.
const stepRate = 100 * time.Microsecond

// eepromSize is the size of each simulated EEPROM area.
const eepromSize = 1024

// Device is one simulated FLI device. It answers decoded requests with
// responses; the framing lives in Session.
type Device struct {
	mu      sync.Mutex
	profile Profile
	class   proto.DeviceClass

	// Camera state.
	camState  uint8 // mirrors the camera state machine values
	area      AreaProfile
	hbin      uint8
	vbin      uint8
	depth     uint8
	frameType uint8
	expMS     uint32
	nflushes  uint16
	shutter   uint8
	bgFlush   bool

	expStart time.Time
	rowsLeft int32
	rowBytes int
	rowsRead int32

	setpoint float64
	fan      uint32
	mode     uint8

	// Motion state.
	wheels      []WheelProfile
	activeWheel int
	position    int32
	extent      int32
	homed       bool
	moveTarget  int32
	moveDone    time.Time

	// Raw state.
	ioPort      uint8
	ioDirection uint8
	eeprom      map[uint8][]byte
}

// Camera state values on the wire.
const (
	camIdle    uint8 = 0
	camWaiting uint8 = 1
	camExpose  uint8 = 2
	camReading uint8 = 3
)

// NewDevice creates a simulated device from a profile.
func NewDevice(p Profile) (*Device, error) {
	class, err := p.deviceClass()
	if err != nil {
		return nil, err
	}

	d := &Device{
		profile: p,
		class:   class,
		area:    p.VisibleArea,
		hbin:    1,
		vbin:    1,
		depth:   16,
		eeprom: map[uint8][]byte{
			0: make([]byte, eepromSize),
			1: make([]byte, eepromSize),
		},
	}

	d.wheels = p.Wheels
	if len(d.wheels) == 0 {
		d.wheels = []WheelProfile{{Extent: p.Extent, Filters: p.Filters}}
	}
	d.extent = int32(d.wheels[0].Extent)
	return d, nil
}

// Class returns the device class from the profile.
func (d *Device) Class() proto.DeviceClass {
	return d.class
}

// handle answers one request. Unknown opcodes report an invalid
// argument status so a newer host degrades cleanly against an older
// simulated device.
func (d *Device) handle(req proto.Request) proto.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	resp := proto.Response{Op: req.Op, Status: proto.StatusOK}
	r := proto.NewPayloadReader(req.Payload)

	switch req.Op {
	case proto.OpIdentify:
		resp.Payload = proto.Identity{
			Class:      d.class,
			HWRevision: d.profile.HWRevision,
			FWRevision: d.profile.FWRevision,
			Model:      d.profile.Model,
		}.Encode()

	case proto.OpGetSerial:
		var w proto.PayloadWriter
		resp.Payload = w.AppendString(d.profile.Serial).Payload()

	case proto.OpGetDeviceStatus:
		var w proto.PayloadWriter
		resp.Payload = w.U32(uint32(d.camState)).Payload()

	case proto.OpGetArrayArea:
		resp.Payload = encodeArea(d.profile.ArrayArea)

	case proto.OpGetVisibleArea:
		resp.Payload = encodeArea(d.profile.VisibleArea)

	case proto.OpGetPixelSize:
		var w proto.PayloadWriter
		w.U32(uint32(d.profile.PixelSizeX * 1000)).U32(uint32(d.profile.PixelSizeY * 1000))
		resp.Payload = w.Payload()

	case proto.OpSetImageArea:
		a := AreaProfile{ULX: r.I32(), ULY: r.I32(), LRX: r.I32(), LRY: r.I32()}
		if r.Err() == nil {
			d.area = a
		}

	case proto.OpSetBinning:
		h, v := r.U8(), r.U8()
		if r.Err() == nil {
			d.hbin, d.vbin = h, v
		}

	case proto.OpSetExposureTime:
		d.expMS = r.U32()

	case proto.OpSetFrameType:
		d.frameType = r.U8()

	case proto.OpSetBitDepth:
		d.depth = r.U8()

	case proto.OpSetNFlushes:
		d.nflushes = r.U16()

	case proto.OpExpose:
		resp.Status = d.expose(r)

	case proto.OpExposureStatus:
		var w proto.PayloadWriter
		resp.Payload = w.U32(d.exposureRemaining()).Payload()

	case proto.OpEndExposure:
		if d.camState != camExpose && d.camState != camWaiting {
			resp.Status = proto.StatusInvalidState
			break
		}
		d.camState = camReading
		d.rowsRead = 0

	case proto.OpCancelExposure:
		if d.camState == camIdle {
			resp.Status = proto.StatusInvalidState
			break
		}
		d.camState = camIdle
		d.rowsLeft = 0

	case proto.OpTriggerExposure:
		if d.camState != camWaiting {
			resp.Status = proto.StatusInvalidState
			break
		}
		d.camState = camExpose
		d.expStart = time.Now()

	case proto.OpGrabRow:
		resp.Status, resp.Payload = d.grabRow(r)

	case proto.OpFlushRow:
		if d.camState != camIdle {
			resp.Status = proto.StatusInvalidState
		}
		r.U32()
		r.U32()

	case proto.OpControlShutter:
		d.shutter = r.U8()
		d.bgFlush = false

	case proto.OpBackgroundFlush:
		d.bgFlush = r.U8() != 0

	case proto.OpSetTemperature:
		d.setpoint = float64(r.I32()) / 100

	case proto.OpReadTemperature:
		ch := r.U8()
		celsius := d.profile.Temperature
		if ch == uint8(proto.TemperatureExternal) {
			celsius += 5
		}
		var w proto.PayloadWriter
		resp.Payload = w.I32(int32(celsius * 100)).Payload()

	case proto.OpGetCoolerPower:
		mw := (d.profile.Temperature - d.setpoint) * 100
		if mw < 0 {
			mw = 0
		}
		var w proto.PayloadWriter
		resp.Payload = w.U32(uint32(mw)).Payload()

	case proto.OpSetFanSpeed:
		d.fan = r.U32()

	case proto.OpGetCameraMode:
		var w proto.PayloadWriter
		resp.Payload = w.U8(d.mode).Payload()

	case proto.OpSetCameraMode:
		mode := r.U8()
		if int(mode) >= len(d.profile.Modes) {
			resp.Status = proto.StatusInvalidArgument
			break
		}
		d.mode = mode

	case proto.OpGetCameraModeString:
		mode := r.U8()
		if int(mode) >= len(d.profile.Modes) {
			resp.Status = proto.StatusNotFound
			break
		}
		var w proto.PayloadWriter
		resp.Payload = w.AppendString(d.profile.Modes[mode]).Payload()

	case proto.OpStep:
		resp.Status, resp.Payload = d.step(r.I32(), false)

	case proto.OpStepAsync:
		resp.Status, _ = d.step(r.I32(), true)

	case proto.OpGetPosition:
		d.settleMove()
		var w proto.PayloadWriter
		resp.Payload = w.I32(d.position).Payload()

	case proto.OpGetStepsRemaining:
		var w proto.PayloadWriter
		resp.Payload = w.I32(d.stepsRemaining()).Payload()

	case proto.OpHome:
		if d.profile.HomeFails {
			resp.Status = proto.StatusHardwareFault
			break
		}
		d.position = 0
		d.homed = true
		d.moveTarget = 0
		d.moveDone = time.Time{}

	case proto.OpGetExtent:
		var w proto.PayloadWriter
		resp.Payload = w.I32(d.extent).Payload()

	case proto.OpGetFilterCount:
		var w proto.PayloadWriter
		resp.Payload = w.U8(uint8(len(d.wheels[d.activeWheel].Filters))).Payload()

	case proto.OpGetFilterName:
		slot := r.U8()
		filters := d.wheels[d.activeWheel].Filters
		if int(slot) >= len(filters) {
			resp.Status = proto.StatusInvalidArgument
			break
		}
		var w proto.PayloadWriter
		resp.Payload = w.AppendString(filters[slot]).Payload()

	case proto.OpSetActiveWheel:
		idx := r.U8()
		if int(idx) >= len(d.wheels) {
			resp.Status = proto.StatusInvalidArgument
			break
		}
		d.activeWheel = int(idx)
		d.extent = int32(d.wheels[idx].Extent)
		d.position = 0
		d.homed = false

	case proto.OpGetActiveWheel:
		var w proto.PayloadWriter
		resp.Payload = w.U8(uint8(d.activeWheel)).Payload()

	case proto.OpReadIOPort:
		var w proto.PayloadWriter
		resp.Payload = w.U8(d.ioPort).Payload()

	case proto.OpWriteIOPort:
		d.ioPort = r.U8()

	case proto.OpConfigureIOPort:
		d.ioDirection = r.U8()

	case proto.OpReadEEPROM:
		resp.Status, resp.Payload = d.readEEPROM(r)

	case proto.OpWriteEEPROM:
		resp.Status = d.writeEEPROM(r)

	default:
		resp.Status = proto.StatusInvalidArgument
	}

	if r.Err() != nil && resp.Status == proto.StatusOK {
		resp.Status = proto.StatusInvalidArgument
		resp.Payload = nil
	}
	return resp
}

func encodeArea(a AreaProfile) []byte {
	var w proto.PayloadWriter
	return w.I32(a.ULX).I32(a.ULY).I32(a.LRX).I32(a.LRY).Payload()
}

// expose parses the atomic exposure command and arms or starts the
// exposure.
func (d *Device) expose(r *proto.PayloadReader) proto.Status {
	if d.camState != camIdle {
		return proto.StatusInvalidState
	}

	d.area = AreaProfile{ULX: r.I32(), ULY: r.I32(), LRX: r.I32(), LRY: r.I32()}
	d.hbin, d.vbin = r.U8(), r.U8()
	d.depth = r.U8()
	d.frameType = r.U8()
	d.expMS = r.U32()
	d.nflushes = r.U16()
	d.shutter = r.U8()
	if r.Err() != nil {
		return proto.StatusInvalidArgument
	}

	d.bgFlush = false
	d.rowsLeft = (d.area.LRY - d.area.ULY) / int32(d.vbin)
	d.rowBytes = int((d.area.LRX-d.area.ULX)/int32(d.hbin)) * bytesPerPixel(d.depth)
	d.rowsRead = 0

	// Trigger-armed exposures hold the clock until the trigger fires.
	if d.shutter&0x06 != 0 {
		d.camState = camWaiting
		return proto.StatusOK
	}
	d.camState = camExpose
	d.expStart = time.Now()
	return proto.StatusOK
}

func bytesPerPixel(depth uint8) int {
	if depth == 8 {
		return 1
	}
	return 2
}

func (d *Device) exposureRemaining() uint32 {
	if d.camState == camWaiting {
		return d.expMS
	}
	if d.camState != camExpose {
		return 0
	}
	elapsed := time.Since(d.expStart).Milliseconds()
	if elapsed >= int64(d.expMS) {
		return 0
	}
	return d.expMS - uint32(elapsed)
}

// grabRow produces one row of the synthetic frame. Pixel values encode
// the row and column so tests can check geometry end to end.
func (d *Device) grabRow(r *proto.PayloadReader) (proto.Status, []byte) {
	want := int(r.U16())
	if r.Err() != nil {
		return proto.StatusInvalidArgument, nil
	}
	if d.camState != camReading {
		return proto.StatusInvalidState, nil
	}
	if d.rowsLeft <= 0 {
		return proto.StatusInvalidState, nil
	}
	if want != d.rowBytes {
		return proto.StatusInvalidArgument, nil
	}

	row := make([]byte, d.rowBytes)
	if d.depth == 8 {
		for col := range row {
			row[col] = byte(int(d.rowsRead) + col)
		}
	} else {
		for col := 0; col < len(row)/2; col++ {
			v := uint16(d.rowsRead)<<8 | uint16(col&0xff)
			binary.BigEndian.PutUint16(row[2*col:], v)
		}
	}

	d.rowsRead++
	d.rowsLeft--
	if d.rowsLeft == 0 {
		d.camState = camIdle
	}
	return proto.StatusOK, row
}

// step moves the motor, clamping at the travel limits. Synchronous
// moves complete before the response; async moves progress at stepRate
// and report through stepsRemaining.
func (d *Device) step(steps int32, async bool) (proto.Status, []byte) {
	d.settleMove()
	if d.stepsRemaining() != 0 {
		// A zero step is the stop command; anything else is rejected
		// while a move is in flight.
		if steps != 0 {
			return proto.StatusBusy, nil
		}
		d.stopMove()
	}

	target := d.position + steps
	if target < 0 {
		target = 0
	}
	if d.extent > 0 && target > d.extent {
		target = d.extent
	}
	moved := target - d.position

	if async {
		d.moveTarget = target
		d.moveDone = time.Now().Add(time.Duration(abs32(moved)) * stepRate)
		return proto.StatusOK, nil
	}

	d.position = target
	var w proto.PayloadWriter
	return proto.StatusOK, w.I32(moved).Payload()
}

// stopMove halts an in-flight async move at its current position.
func (d *Device) stopMove() {
	remaining := d.stepsRemaining()
	if d.moveTarget >= d.position {
		d.position = d.moveTarget - remaining
	} else {
		d.position = d.moveTarget + remaining
	}
	d.moveDone = time.Time{}
}

// settleMove applies a finished async move to the position.
func (d *Device) settleMove() {
	if !d.moveDone.IsZero() && !time.Now().Before(d.moveDone) {
		d.position = d.moveTarget
		d.moveDone = time.Time{}
	}
}

func (d *Device) stepsRemaining() int32 {
	if d.moveDone.IsZero() {
		return 0
	}
	if !time.Now().Before(d.moveDone) {
		d.settleMove()
		return 0
	}
	left := int32(time.Until(d.moveDone) / stepRate)
	if left < 1 {
		left = 1
	}
	return left
}

func (d *Device) readEEPROM(r *proto.PayloadReader) (proto.Status, []byte) {
	area, offset, length := r.U8(), int(r.U16()), int(r.U16())
	if r.Err() != nil {
		return proto.StatusInvalidArgument, nil
	}
	mem, ok := d.eeprom[area]
	if !ok || offset+length > len(mem) {
		return proto.StatusInvalidArgument, nil
	}
	out := make([]byte, length)
	copy(out, mem[offset:])
	return proto.StatusOK, out
}

func (d *Device) writeEEPROM(r *proto.PayloadReader) proto.Status {
	area, offset := r.U8(), int(r.U16())
	data := r.Rest()
	if r.Err() != nil {
		return proto.StatusInvalidArgument
	}
	mem, ok := d.eeprom[area]
	if !ok || offset+len(data) > len(mem) {
		return proto.StatusInvalidArgument
	}
	copy(mem[offset:], data)
	return proto.StatusOK
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
