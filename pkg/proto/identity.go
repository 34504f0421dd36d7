package proto

import "fmt"

// TemperatureChannel selects a temperature sensor in a read-temperature
// command. Cameras and focusers carry an internal sensor; some models
// add an external one at the heatsink.
type TemperatureChannel uint8

const (
	// TemperatureInternal is the sensor at the CCD or motor body.
	TemperatureInternal TemperatureChannel = 0

	// TemperatureExternal is the sensor at the heatsink.
	TemperatureExternal TemperatureChannel = 1
)

// Identity is the payload of an identify response: the device announces
// its class, hardware and firmware revisions and model string.
type Identity struct {
	Class      DeviceClass
	HWRevision uint16
	FWRevision uint16
	Model      string
}

// Encode serializes the identity to its wire form.
func (id Identity) Encode() []byte {
	var w PayloadWriter
	w.U8(uint8(id.Class)).U16(id.HWRevision).U16(id.FWRevision).AppendString(id.Model)
	return w.Payload()
}

// ParseIdentity decodes an identify response payload.
func ParseIdentity(p []byte) (Identity, error) {
	r := NewPayloadReader(p)
	id := Identity{
		Class:      DeviceClass(r.U8()),
		HWRevision: r.U16(),
		FWRevision: r.U16(),
		Model:      r.String(),
	}
	if err := r.Err(); err != nil {
		return Identity{}, fmt.Errorf("identify payload: %w", err)
	}
	return id, nil
}
