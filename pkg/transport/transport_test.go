package transport

import (
	"errors"
	"testing"

	"github.com/openfli/fli-go/pkg/proto"
)

func TestUSBValidateAddress(t *testing.T) {
	u := &USB{}

	tests := []struct {
		address string
		ok      bool
	}{
		{"usb:ML0012345", true},
		{"usb:1.4", true},
		{"usb:", false},
		{"ML0012345", false},
		{"/dev/ttyUSB0", false},
	}
	for _, tt := range tests {
		err := u.ValidateAddress(tt.address)
		if tt.ok && err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", tt.address, err)
		}
		if !tt.ok && !errors.Is(err, proto.ErrInvalidArgument) {
			t.Errorf("ValidateAddress(%q) = %v, want ErrInvalidArgument", tt.address, err)
		}
	}
}

func TestSerialValidateAddress(t *testing.T) {
	s := NewSerial()

	for _, addr := range []string{"/dev/ttyUSB0", "/dev/ttyS1", "COM3"} {
		if err := s.ValidateAddress(addr); err != nil {
			t.Errorf("ValidateAddress(%q) = %v, want nil", addr, err)
		}
	}
	for _, addr := range []string{"", "ttyUSB0", "usb:x"} {
		if err := s.ValidateAddress(addr); !errors.Is(err, proto.ErrInvalidArgument) {
			t.Errorf("ValidateAddress(%q) = %v, want ErrInvalidArgument", addr, err)
		}
	}
}

func TestSerialBaudSelection(t *testing.T) {
	if NewSerial().baud != SerialBaud {
		t.Errorf("default baud = %d", NewSerial().baud)
	}
	if NewSerialBaud(SerialBaudLegacy).baud != 1200 {
		t.Errorf("legacy baud = %d", NewSerialBaud(SerialBaudLegacy).baud)
	}
}

func TestParallelValidateAddress(t *testing.T) {
	p := NewParallel()

	if err := p.ValidateAddress("/dev/parport0"); err != nil {
		t.Errorf("ValidateAddress(parport0) = %v", err)
	}
	if err := p.ValidateAddress("/dev/ttyS0"); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("ValidateAddress(ttyS0) = %v, want ErrInvalidArgument", err)
	}
}

func TestNetworkValidateAddress(t *testing.T) {
	n := NewNetwork()

	if err := n.ValidateAddress("fli-server:7624"); err != nil {
		t.Errorf("ValidateAddress(host:port) = %v", err)
	}
	if err := n.ValidateAddress("fli-server"); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("ValidateAddress(no port) = %v, want ErrInvalidArgument", err)
	}
}

func TestNetworkScanEmpty(t *testing.T) {
	records, err := NewNetwork().Scan()
	if err != nil || records != nil {
		t.Errorf("Scan() = %v, %v, want empty snapshot", records, err)
	}
}
