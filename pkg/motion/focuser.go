package motion

import (
	"github.com/openfli/fli-go/pkg/proto"
)

// Focuser drives an FLI focuser. It is the plain motor state machine
// plus the temperature readout the focuser hardware carries.
type Focuser struct {
	*Motor
}

// NewFocuser creates a focuser over the given engine.
func NewFocuser(eng *proto.Engine, opts ...Option) (*Focuser, error) {
	m, err := NewMotor(eng, "focuser", opts...)
	if err != nil {
		return nil, err
	}
	return &Focuser{Motor: m}, nil
}

// ReadTemperature returns the given sensor channel's temperature in
// degrees Celsius.
func (f *Focuser) ReadTemperature(ch proto.TemperatureChannel) (float64, error) {
	var w proto.PayloadWriter
	w.U8(uint8(ch))
	resp, err := f.eng.Exchange(proto.OpReadTemperature, w.Payload())
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
