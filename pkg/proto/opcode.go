package proto

// Opcode identifies a logical command. The response to a command always
// echoes the request opcode.
type Opcode uint8

// System and identity commands.
const (
	// OpIdentify requests the device class, revisions and model string.
	OpIdentify Opcode = 0x01

	// OpGetSerial requests the device serial-number string.
	OpGetSerial Opcode = 0x02

	// OpGetDeviceStatus requests the raw device status word.
	OpGetDeviceStatus Opcode = 0x03
)

// Camera geometry and configuration commands.
const (
	// OpGetArrayArea requests the total CCD array area.
	OpGetArrayArea Opcode = 0x10

	// OpGetVisibleArea requests the visible (light-sensitive) area.
	OpGetVisibleArea Opcode = 0x11

	// OpGetPixelSize requests the pixel dimensions in microns.
	OpGetPixelSize Opcode = 0x12

	// OpSetImageArea sets the readout region of interest.
	OpSetImageArea Opcode = 0x13

	// OpSetBinning sets the horizontal and vertical bin factors.
	OpSetBinning Opcode = 0x14

	// OpSetExposureTime sets the exposure duration in milliseconds.
	OpSetExposureTime Opcode = 0x15

	// OpSetFrameType sets the frame type (normal/dark/flood/RBI-flush).
	OpSetFrameType Opcode = 0x16

	// OpSetBitDepth sets the pixel bit depth (8 or 16).
	OpSetBitDepth Opcode = 0x17

	// OpSetNFlushes sets the number of pre-exposure array flushes.
	OpSetNFlushes Opcode = 0x18
)

// Camera exposure and readout commands.
const (
	// OpExpose arms and starts an exposure with the staged parameters.
	OpExpose Opcode = 0x20

	// OpExposureStatus polls the remaining exposure time.
	OpExposureStatus Opcode = 0x21

	// OpEndExposure ends the exposure early and begins readout.
	OpEndExposure Opcode = 0x22

	// OpCancelExposure aborts the exposure without readout.
	OpCancelExposure Opcode = 0x23

	// OpTriggerExposure releases an armed external-trigger exposure.
	OpTriggerExposure Opcode = 0x24

	// OpGrabRow transfers one row of pixel data.
	OpGrabRow Opcode = 0x25

	// OpFlushRow flushes rows of accumulated charge without readout.
	OpFlushRow Opcode = 0x26

	// OpControlShutter opens, closes or arms the mechanical shutter.
	OpControlShutter Opcode = 0x27

	// OpBackgroundFlush starts or stops continuous background flushing.
	OpBackgroundFlush Opcode = 0x28
)

// Camera environment commands.
const (
	// OpSetTemperature sets the cooler set-point in centi-degrees C.
	OpSetTemperature Opcode = 0x30

	// OpReadTemperature reads a temperature channel in centi-degrees C.
	OpReadTemperature Opcode = 0x31

	// OpGetCoolerPower reads the cooler drive power in milliwatts.
	OpGetCoolerPower Opcode = 0x32

	// OpSetFanSpeed sets the fan speed.
	OpSetFanSpeed Opcode = 0x33

	// OpGetCameraMode reads the current readout mode index.
	OpGetCameraMode Opcode = 0x34

	// OpSetCameraMode selects a readout mode.
	OpSetCameraMode Opcode = 0x35

	// OpGetCameraModeString reads the name of a readout mode.
	OpGetCameraModeString Opcode = 0x36
)

// Motion commands (filter wheel and focuser).
const (
	// OpStep moves the stepper and completes when motion stops.
	OpStep Opcode = 0x50

	// OpStepAsync starts a stepper move and returns immediately.
	OpStepAsync Opcode = 0x51

	// OpGetPosition reads the current stepper position.
	OpGetPosition Opcode = 0x52

	// OpGetStepsRemaining reads the steps outstanding on an async move.
	OpGetStepsRemaining Opcode = 0x53

	// OpHome drives the mechanism to its home reference.
	OpHome Opcode = 0x54

	// OpGetExtent reads the maximum travel in steps.
	OpGetExtent Opcode = 0x55

	// OpGetFilterCount reads the number of filter slots.
	OpGetFilterCount Opcode = 0x56

	// OpGetFilterName reads the label of one filter slot.
	OpGetFilterName Opcode = 0x57

	// OpSetActiveWheel selects the physical or virtual wheel bank.
	OpSetActiveWheel Opcode = 0x58

	// OpGetActiveWheel reads the selected wheel bank.
	OpGetActiveWheel Opcode = 0x59
)

// Raw passthrough commands.
const (
	// OpReadIOPort reads the auxiliary I/O port pins.
	OpReadIOPort Opcode = 0x60

	// OpWriteIOPort drives the auxiliary I/O port pins.
	OpWriteIOPort Opcode = 0x61

	// OpConfigureIOPort sets the I/O port pin directions.
	OpConfigureIOPort Opcode = 0x62

	// OpReadEEPROM reads a block of user EEPROM.
	OpReadEEPROM Opcode = 0x63

	// OpWriteEEPROM writes a block of user EEPROM.
	OpWriteEEPROM Opcode = 0x64

	// OpBulkIO is the raw bulk-endpoint passthrough.
	OpBulkIO Opcode = 0x65
)

// String returns the opcode mnemonic.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

var opcodeNames = map[Opcode]string{
	OpIdentify:            "IDENTIFY",
	OpGetSerial:           "GET_SERIAL",
	OpGetDeviceStatus:     "GET_DEVICE_STATUS",
	OpGetArrayArea:        "GET_ARRAY_AREA",
	OpGetVisibleArea:      "GET_VISIBLE_AREA",
	OpGetPixelSize:        "GET_PIXEL_SIZE",
	OpSetImageArea:        "SET_IMAGE_AREA",
	OpSetBinning:          "SET_BINNING",
	OpSetExposureTime:     "SET_EXPOSURE_TIME",
	OpSetFrameType:        "SET_FRAME_TYPE",
	OpSetBitDepth:         "SET_BIT_DEPTH",
	OpSetNFlushes:         "SET_NFLUSHES",
	OpExpose:              "EXPOSE",
	OpExposureStatus:      "EXPOSURE_STATUS",
	OpEndExposure:         "END_EXPOSURE",
	OpCancelExposure:      "CANCEL_EXPOSURE",
	OpTriggerExposure:     "TRIGGER_EXPOSURE",
	OpGrabRow:             "GRAB_ROW",
	OpFlushRow:            "FLUSH_ROW",
	OpControlShutter:      "CONTROL_SHUTTER",
	OpBackgroundFlush:     "BACKGROUND_FLUSH",
	OpSetTemperature:      "SET_TEMPERATURE",
	OpReadTemperature:     "READ_TEMPERATURE",
	OpGetCoolerPower:      "GET_COOLER_POWER",
	OpSetFanSpeed:         "SET_FAN_SPEED",
	OpGetCameraMode:       "GET_CAMERA_MODE",
	OpSetCameraMode:       "SET_CAMERA_MODE",
	OpGetCameraModeString: "GET_CAMERA_MODE_STRING",
	OpStep:                "STEP",
	OpStepAsync:           "STEP_ASYNC",
	OpGetPosition:         "GET_POSITION",
	OpGetStepsRemaining:   "GET_STEPS_REMAINING",
	OpHome:                "HOME",
	OpGetExtent:           "GET_EXTENT",
	OpGetFilterCount:      "GET_FILTER_COUNT",
	OpGetFilterName:       "GET_FILTER_NAME",
	OpSetActiveWheel:      "SET_ACTIVE_WHEEL",
	OpGetActiveWheel:      "GET_ACTIVE_WHEEL",
	OpReadIOPort:          "READ_IO_PORT",
	OpWriteIOPort:         "WRITE_IO_PORT",
	OpConfigureIOPort:     "CONFIGURE_IO_PORT",
	OpReadEEPROM:          "READ_EEPROM",
	OpWriteEEPROM:         "WRITE_EEPROM",
	OpBulkIO:              "BULK_IO",
}

// DeviceClass identifies the kind of hardware behind a handle. The value
// is reported by the device in its identify response.
type DeviceClass uint8

const (
	// ClassUnknown means the class has not been determined yet; the
	// identify handshake resolves it.
	ClassUnknown DeviceClass = 0x00

	// ClassCamera is a cooled CCD camera.
	ClassCamera DeviceClass = 0x01

	// ClassFilterWheel is a filter wheel.
	ClassFilterWheel DeviceClass = 0x02

	// ClassFocuser is a focuser.
	ClassFocuser DeviceClass = 0x03

	// ClassHSFilterWheel is a high-speed filter wheel.
	ClassHSFilterWheel DeviceClass = 0x04

	// ClassRaw is a raw device exposing only passthrough commands.
	ClassRaw DeviceClass = 0x0f
)

// String returns the device class name.
func (c DeviceClass) String() string {
	switch c {
	case ClassCamera:
		return "camera"
	case ClassFilterWheel:
		return "filter-wheel"
	case ClassFocuser:
		return "focuser"
	case ClassHSFilterWheel:
		return "hs-filter-wheel"
	case ClassRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// IsMotion reports whether the class is driven by the motion state machine.
func (c DeviceClass) IsMotion() bool {
	return c == ClassFilterWheel || c == ClassFocuser || c == ClassHSFilterWheel
}
