package device

import (
	"github.com/openfli/fli-go/pkg/proto"
)

// libVersion identifies this library in LibVersion. Kept in the format
// applications parsing the classic version string expect.
const libVersion = "FLI Go library 1.0.0"

// LibVersion returns the library version string.
func LibVersion() string {
	return libVersion
}

// Identity returns the device's identify response: class, hardware and
// firmware revisions and model string. Cached from the open handshake;
// no exchange happens.
func (r *Registry) Identity(h Handle) (proto.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return proto.Identity{}, err
	}
	return s.identity, nil
}

// Model returns the device model string.
func (r *Registry) Model(h Handle) (string, error) {
	id, err := r.Identity(h)
	if err != nil {
		return "", err
	}
	return id.Model, nil
}

// HWRevision returns the hardware revision.
func (r *Registry) HWRevision(h Handle) (uint16, error) {
	id, err := r.Identity(h)
	if err != nil {
		return 0, err
	}
	return id.HWRevision, nil
}

// FWRevision returns the firmware revision.
func (r *Registry) FWRevision(h Handle) (uint16, error) {
	id, err := r.Identity(h)
	if err != nil {
		return 0, err
	}
	return id.FWRevision, nil
}

// SerialString returns the device serial number.
func (r *Registry) SerialString(h Handle) (string, error) {
	eng, err := r.engine(h)
	if err != nil {
		return "", err
	}
	resp, err := eng.Exchange(proto.OpGetSerial, nil)
	if err != nil {
		return "", err
	}
	pr := proto.NewPayloadReader(resp)
	serial := pr.String()
	return serial, pr.Err()
}
