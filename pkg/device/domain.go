package device

import (
	"fmt"

	"github.com/openfli/fli-go/pkg/proto"
)

// Interface selects the transport a device is reached over.
type Interface uint8

const (
	// InterfaceNone is the zero interface.
	InterfaceNone Interface = 0x00

	// InterfaceParallelPort reaches legacy devices over the parallel port.
	InterfaceParallelPort Interface = 0x01

	// InterfaceUSB reaches devices over USB bulk endpoints.
	InterfaceUSB Interface = 0x02

	// InterfaceSerial reaches devices over RS-232 at the default rate.
	InterfaceSerial Interface = 0x03

	// InterfaceNetwork reaches a remote device server over TCP.
	InterfaceNetwork Interface = 0x04

	// InterfaceSerial19200 forces the 19200 baud serial rate.
	InterfaceSerial19200 Interface = 0x05

	// InterfaceSerial1200 forces the legacy 1200 baud serial rate.
	InterfaceSerial1200 Interface = 0x06
)

// String returns the interface name.
func (i Interface) String() string {
	switch i {
	case InterfaceNone:
		return "NONE"
	case InterfaceParallelPort:
		return "PARALLEL"
	case InterfaceUSB:
		return "USB"
	case InterfaceSerial:
		return "SERIAL"
	case InterfaceNetwork:
		return "NETWORK"
	case InterfaceSerial19200:
		return "SERIAL_19200"
	case InterfaceSerial1200:
		return "SERIAL_1200"
	default:
		return fmt.Sprintf("INTERFACE(0x%02x)", uint8(i))
	}
}

// Domain packs an interface and a device class into one value, the way
// device domains appear in FLI software: interface in the low byte,
// class in the high byte. NewDomain builds one; Interface and Class
// take it apart.
type Domain uint16

// NewDomain combines an interface and a device class.
func NewDomain(i Interface, c proto.DeviceClass) Domain {
	return Domain(i) | Domain(c)<<8
}

// Interface returns the domain's transport interface.
func (d Domain) Interface() Interface {
	return Interface(d & 0xff)
}

// Class returns the domain's device class. ClassUnknown means any
// class.
func (d Domain) Class() proto.DeviceClass {
	return proto.DeviceClass(d >> 8)
}

// String returns "INTERFACE/CLASS".
func (d Domain) String() string {
	return fmt.Sprintf("%s/%s", d.Interface(), d.Class())
}
