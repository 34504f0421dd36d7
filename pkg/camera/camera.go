package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/openfli/fli-go/pkg/log"
	"github.com/openfli/fli-go/pkg/proto"
)

// Camera drives one CCD camera through a protocol engine. All methods
// are safe for concurrent use; configuration and exposure control
// serialize on an internal mutex.
//
// Exposure parameters are staged host-side by the Set* methods and
// sent to the device in a single command when Expose runs, so a
// half-updated configuration can never reach the hardware.
type Camera struct {
	mu  sync.Mutex
	eng *proto.Engine

	logger  log.Logger
	connID  string
	address string

	// Sensor geometry, fetched once at construction.
	array   Area
	visible Area
	pixelX  float64 // microns
	pixelY  float64

	// Staged exposure configuration.
	area      Area
	hbin      int
	vbin      int
	depth     BitDepth
	frameType FrameType
	exposure  time.Duration
	nflushes  int
	shutter   ShutterMode

	state   State
	bgFlush bool

	// Readout bookkeeping for the in-progress exposure.
	rowsLeft int32
	rowBytes int
}

// Option configures a Camera.
type Option func(*Camera)

// WithLogger attaches a device-layer event logger. connID identifies
// the session and address the device in emitted events.
func WithLogger(logger log.Logger, connID, address string) Option {
	return func(c *Camera) {
		c.logger = logger
		c.connID = connID
		c.address = address
	}
}

// New creates a camera over the given engine and fetches the sensor
// geometry from the device. The staged configuration starts at the full
// visible area, 1x1 binning, 16-bit depth, a normal frame and a zero
// exposure time.
func New(eng *proto.Engine, opts ...Option) (*Camera, error) {
	c := &Camera{
		eng:    eng,
		logger: log.NoopLogger{},
		hbin:   1,
		vbin:   1,
		depth:  Depth16Bit,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error
	if c.array, err = c.fetchArea(proto.OpGetArrayArea); err != nil {
		return nil, err
	}
	if c.visible, err = c.fetchArea(proto.OpGetVisibleArea); err != nil {
		return nil, err
	}

	resp, err := c.eng.Exchange(proto.OpGetPixelSize, nil)
	if err != nil {
		return nil, err
	}
	r := proto.NewPayloadReader(resp)
	c.pixelX = float64(r.U32()) / 1000 // wire unit is nanometers
	c.pixelY = float64(r.U32()) / 1000
	if err := r.Err(); err != nil {
		return nil, err
	}

	c.area = c.visible
	return c, nil
}

func (c *Camera) fetchArea(op proto.Opcode) (Area, error) {
	resp, err := c.eng.Exchange(op, nil)
	if err != nil {
		return Area{}, err
	}
	r := proto.NewPayloadReader(resp)
	a := Area{ULX: r.I32(), ULY: r.I32(), LRX: r.I32(), LRY: r.I32()}
	return a, r.Err()
}

// State returns the current state machine state.
func (c *Camera) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ArrayArea returns the full sensor area, including dark columns.
func (c *Camera) ArrayArea() Area {
	return c.array
}

// VisibleArea returns the light-sensitive sensor area.
func (c *Camera) VisibleArea() Area {
	return c.visible
}

// PixelSize returns the pixel pitch in microns.
func (c *Camera) PixelSize() (x, y float64) {
	return c.pixelX, c.pixelY
}

// busy reports whether configuration is currently locked out. Must be
// called with the mutex held.
func (c *Camera) busy() bool {
	return c.state != StateIdle
}

// configGuard rejects configuration while an exposure cycle is in
// progress. The check runs before any bytes reach the transport.
func (c *Camera) configGuard() error {
	if c.busy() {
		return fmt.Errorf("%w: cannot reconfigure in state %s", proto.ErrInvalidState, c.state)
	}
	return nil
}

// SetImageArea stages the region to expose. The area must lie within
// the visible area and divide evenly by the staged bin factors.
func (c *Camera) SetImageArea(a Area) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.configGuard(); err != nil {
		return err
	}

	if a.Width() <= 0 || a.Height() <= 0 {
		return fmt.Errorf("%w: image area %+v is empty", proto.ErrInvalidArgument, a)
	}
	if !c.visible.Contains(a) {
		return fmt.Errorf("%w: image area %+v exceeds visible area %+v",
			proto.ErrInvalidArgument, a, c.visible)
	}
	if err := checkDivisible(a, c.hbin, c.vbin); err != nil {
		return err
	}

	var w proto.PayloadWriter
	w.I32(a.ULX).I32(a.ULY).I32(a.LRX).I32(a.LRY)
	if _, err := c.eng.Exchange(proto.OpSetImageArea, w.Payload()); err != nil {
		return err
	}
	c.area = a
	return nil
}

// SetBinning stages the horizontal and vertical bin factors. The staged
// image area must divide evenly by the new factors.
func (c *Camera) SetBinning(hbin, vbin int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.configGuard(); err != nil {
		return err
	}

	if hbin < MinBin || hbin > MaxBin || vbin < MinBin || vbin > MaxBin {
		return fmt.Errorf("%w: bin factors %dx%d outside %d..%d",
			proto.ErrInvalidArgument, hbin, vbin, MinBin, MaxBin)
	}
	if err := checkDivisible(c.area, hbin, vbin); err != nil {
		return err
	}

	var w proto.PayloadWriter
	w.U8(uint8(hbin)).U8(uint8(vbin))
	if _, err := c.eng.Exchange(proto.OpSetBinning, w.Payload()); err != nil {
		return err
	}
	c.hbin, c.vbin = hbin, vbin
	return nil
}

func checkDivisible(a Area, hbin, vbin int) error {
	if a.Width()%int32(hbin) != 0 {
		return fmt.Errorf("%w: image width %d not divisible by hbin %d",
			proto.ErrInvalidArgument, a.Width(), hbin)
	}
	if a.Height()%int32(vbin) != 0 {
		return fmt.Errorf("%w: image height %d not divisible by vbin %d",
			proto.ErrInvalidArgument, a.Height(), vbin)
	}
	return nil
}

// SetExposureTime stages the exposure duration. Resolution is one
// millisecond; a zero duration is a valid bias frame.
func (c *Camera) SetExposureTime(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.configGuard(); err != nil {
		return err
	}

	if d < 0 {
		return fmt.Errorf("%w: negative exposure time %v", proto.ErrInvalidArgument, d)
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)) {
		return fmt.Errorf("%w: exposure time %v too long", proto.ErrInvalidArgument, d)
	}

	var w proto.PayloadWriter
	w.U32(uint32(ms))
	if _, err := c.eng.Exchange(proto.OpSetExposureTime, w.Payload()); err != nil {
		return err
	}
	c.exposure = d
	return nil
}

// SetFrameType stages the shutter behavior for the next exposure.
func (c *Camera) SetFrameType(t FrameType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.configGuard(); err != nil {
		return err
	}

	switch t {
	case FrameTypeNormal, FrameTypeDark, FrameTypeFlood, FrameTypeRBIFlush:
	default:
		return fmt.Errorf("%w: unknown frame type %d", proto.ErrInvalidArgument, t)
	}

	var w proto.PayloadWriter
	w.U8(uint8(t))
	if _, err := c.eng.Exchange(proto.OpSetFrameType, w.Payload()); err != nil {
		return err
	}
	c.frameType = t
	return nil
}

// SetBitDepth stages the pixel sample width.
func (c *Camera) SetBitDepth(d BitDepth) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.configGuard(); err != nil {
		return err
	}

	if d != Depth8Bit && d != Depth16Bit {
		return fmt.Errorf("%w: bit depth %d is not 8 or 16", proto.ErrInvalidArgument, d)
	}

	var w proto.PayloadWriter
	w.U8(uint8(d))
	if _, err := c.eng.Exchange(proto.OpSetBitDepth, w.Payload()); err != nil {
		return err
	}
	c.depth = d
	return nil
}

// SetNFlushes stages the number of sensor flushes performed before the
// exposure starts.
func (c *Camera) SetNFlushes(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.configGuard(); err != nil {
		return err
	}

	if n < 0 || n > 0xffff {
		return fmt.Errorf("%w: flush count %d outside 0..65535", proto.ErrInvalidArgument, n)
	}

	var w proto.PayloadWriter
	w.U16(uint16(n))
	if _, err := c.eng.Exchange(proto.OpSetNFlushes, w.Payload()); err != nil {
		return err
	}
	c.nflushes = n
	return nil
}

// ImageArea returns the staged image area.
func (c *Camera) ImageArea() Area {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.area
}

// Binning returns the staged bin factors.
func (c *Camera) Binning() (hbin, vbin int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hbin, c.vbin
}

// BitDepth returns the staged pixel sample width.
func (c *Camera) BitDepth() BitDepth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.depth
}

// FrameType returns the staged frame type.
func (c *Camera) FrameType() FrameType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameType
}

// ExposureTime returns the staged exposure duration.
func (c *Camera) ExposureTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposure
}

// ReadoutDimensions returns the binned frame geometry the staged
// configuration will produce. Computed host-side; no exchange happens.
func (c *Camera) ReadoutDimensions() ReadoutDimensions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readoutDimensionsLocked()
}

func (c *Camera) readoutDimensionsLocked() ReadoutDimensions {
	return ReadoutDimensions{
		Width:   c.area.Width() / int32(c.hbin),
		HOffset: c.area.ULX,
		HBin:    int32(c.hbin),
		Height:  c.area.Height() / int32(c.vbin),
		VOffset: c.area.ULY,
		VBin:    int32(c.vbin),
	}
}

// setState transitions the state machine and emits a device-layer
// event. Must be called with the mutex held.
func (c *Camera) setState(next State, reason string) {
	if c.state == next {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Address:      c.address,
		Layer:        log.LayerDevice,
		Level:        log.LevelInfo,
		State: &log.StateChangeEvent{
			Entity:   "camera",
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}
