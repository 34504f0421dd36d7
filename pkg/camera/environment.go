package camera

import (
	"fmt"

	"github.com/openfli/fli-go/pkg/proto"
)

// Temperature control and camera-mode selection. These run independent
// of the exposure state machine; cooling a sensor mid-exposure is
// routine.

// SetTemperature sets the cooler set-point in degrees Celsius.
func (c *Camera) SetTemperature(celsius float64) error {
	if celsius < MinTemperature || celsius > MaxTemperature {
		return fmt.Errorf("%w: temperature %.1f outside %.0f..%.0f",
			proto.ErrInvalidArgument, celsius, MinTemperature, MaxTemperature)
	}

	var w proto.PayloadWriter
	w.I32(int32(celsius * 100)) // wire unit is centidegrees
	_, err := c.eng.Exchange(proto.OpSetTemperature, w.Payload())
	return err
}

// Temperature returns the CCD temperature in degrees Celsius.
func (c *Camera) Temperature() (float64, error) {
	return c.ReadTemperature(proto.TemperatureInternal)
}

// ReadTemperature returns the given sensor channel's temperature in
// degrees Celsius.
func (c *Camera) ReadTemperature(ch proto.TemperatureChannel) (float64, error) {
	var w proto.PayloadWriter
	w.U8(uint8(ch))
	resp, err := c.eng.Exchange(proto.OpReadTemperature, w.Payload())
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	centi := r.I32()
	if err := r.Err(); err != nil {
		return 0, err
	}
	return float64(centi) / 100, nil
}

// CoolerPower returns the cooler drive power in milliwatts.
func (c *Camera) CoolerPower() (float64, error) {
	resp, err := c.eng.Exchange(proto.OpGetCoolerPower, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	mw := r.U32()
	if err := r.Err(); err != nil {
		return 0, err
	}
	return float64(mw), nil
}

// SetFanSpeed controls the cooling fan.
func (c *Camera) SetFanSpeed(speed FanSpeed) error {
	var w proto.PayloadWriter
	w.U32(uint32(speed))
	_, err := c.eng.Exchange(proto.OpSetFanSpeed, w.Payload())
	return err
}

// Mode returns the active readout mode index.
func (c *Camera) Mode() (uint8, error) {
	resp, err := c.eng.Exchange(proto.OpGetCameraMode, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	mode := r.U8()
	return mode, r.Err()
}

// SetMode selects a readout mode. Rejected while an exposure cycle is
// in progress.
func (c *Camera) SetMode(mode uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.configGuard(); err != nil {
		return err
	}

	var w proto.PayloadWriter
	w.U8(mode)
	_, err := c.eng.Exchange(proto.OpSetCameraMode, w.Payload())
	return err
}

// ModeString returns the device's name for a readout mode. Probing
// past the last mode returns ErrNotFound, which callers use to count
// the available modes.
func (c *Camera) ModeString(mode uint8) (string, error) {
	var w proto.PayloadWriter
	w.U8(mode)
	resp, err := c.eng.Exchange(proto.OpGetCameraModeString, w.Payload())
	if err != nil {
		return "", err
	}
	r := proto.NewPayloadReader(resp)
	name := r.String()
	return name, r.Err()
}

// DeviceStatus returns the raw device status register. The low nibble
// mirrors the exposure state; the remaining bits are model-specific.
func (c *Camera) DeviceStatus() (uint32, error) {
	resp, err := c.eng.Exchange(proto.OpGetDeviceStatus, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	status := r.U32()
	return status, r.Err()
}
