package camera

// State is the camera state machine state. Values match the status the
// device reports in its device-status register.
type State uint8

const (
	// StateIdle means no exposure or readout is in progress.
	StateIdle State = 0

	// StateWaitingForTrigger means an exposure has been armed with an
	// external-trigger shutter mode and the device is waiting for the
	// trigger edge.
	StateWaitingForTrigger State = 1

	// StateExposing means an exposure is integrating.
	StateExposing State = 2

	// StateReading means the exposure has ended and rows are being read
	// out.
	StateReading State = 3
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWaitingForTrigger:
		return "WAITING_FOR_TRIGGER"
	case StateExposing:
		return "EXPOSING"
	case StateReading:
		return "READING"
	default:
		return "UNKNOWN"
	}
}

// Area is a rectangular pixel region given by its upper-left (inclusive)
// and lower-right (exclusive) corners, in unbinned sensor coordinates.
type Area struct {
	ULX, ULY int32
	LRX, LRY int32
}

// Width returns the area width in unbinned pixels.
func (a Area) Width() int32 { return a.LRX - a.ULX }

// Height returns the area height in unbinned pixels.
func (a Area) Height() int32 { return a.LRY - a.ULY }

// Contains reports whether b lies entirely within a.
func (a Area) Contains(b Area) bool {
	return b.ULX >= a.ULX && b.ULY >= a.ULY && b.LRX <= a.LRX && b.LRY <= a.LRY
}

// FrameType selects how the shutter behaves during an exposure.
type FrameType uint8

const (
	// FrameTypeNormal opens the shutter during the exposure.
	FrameTypeNormal FrameType = 0

	// FrameTypeDark keeps the shutter closed during the exposure.
	FrameTypeDark FrameType = 1

	// FrameTypeFlood floods the sensor before the exposure.
	FrameTypeFlood FrameType = 2

	// FrameTypeRBIFlush combines flood and dark to flush residual bulk
	// image charge.
	FrameTypeRBIFlush FrameType = FrameTypeFlood | FrameTypeDark
)

// String returns the frame type name.
func (f FrameType) String() string {
	switch f {
	case FrameTypeNormal:
		return "NORMAL"
	case FrameTypeDark:
		return "DARK"
	case FrameTypeFlood:
		return "FLOOD"
	case FrameTypeRBIFlush:
		return "RBI_FLUSH"
	default:
		return "UNKNOWN"
	}
}

// BitDepth is the pixel sample width.
type BitDepth uint8

const (
	// Depth8Bit reads one byte per pixel.
	Depth8Bit BitDepth = 8

	// Depth16Bit reads two bytes per pixel.
	Depth16Bit BitDepth = 16
)

// BytesPerPixel returns the per-pixel byte count for the depth.
func (d BitDepth) BytesPerPixel() int {
	if d == Depth8Bit {
		return 1
	}
	return 2
}

// ShutterMode controls the mechanical shutter and exposure triggering.
type ShutterMode uint8

const (
	// ShutterClose closes the shutter.
	ShutterClose ShutterMode = 0x00

	// ShutterOpen opens the shutter.
	ShutterOpen ShutterMode = 0x01

	// ShutterExternalTriggerLow arms exposures to start on a low trigger
	// edge.
	ShutterExternalTriggerLow ShutterMode = 0x02

	// ShutterExternalTriggerHigh arms exposures to start on a high
	// trigger edge.
	ShutterExternalTriggerHigh ShutterMode = 0x04

	// ShutterExternalExposureControl lets the trigger input control the
	// full exposure interval.
	ShutterExternalExposureControl ShutterMode = 0x08
)

// externalTrigger reports whether the mode arms external triggering.
func (m ShutterMode) externalTrigger() bool {
	return m&(ShutterExternalTriggerLow|ShutterExternalTriggerHigh) != 0
}

// FanSpeed controls the cooling fan.
type FanSpeed uint32

const (
	// FanOff stops the fan.
	FanOff FanSpeed = 0x00

	// FanOn runs the fan at full speed.
	FanOn FanSpeed = 0xffffffff
)

// Binning limits. The devices bin in hardware up to 16x16.
const (
	MinBin = 1
	MaxBin = 16
)

// Temperature set-point limits in degrees Celsius.
const (
	MinTemperature = -55.0
	MaxTemperature = 45.0
)

// ReadoutDimensions describes the binned frame geometry the next
// exposure will produce, derived from the staged image area and bin
// factors.
type ReadoutDimensions struct {
	Width   int32
	HOffset int32
	HBin    int32
	Height  int32
	VOffset int32
	VBin    int32
}
