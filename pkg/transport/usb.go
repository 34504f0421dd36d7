package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/gousb"

	"github.com/openfli/fli-go/pkg/proto"
)

// FLI USB identifiers.
const (
	// VendorID is the FLI USB vendor ID.
	VendorID = 0x0f18

	// Bulk endpoint numbers (OUT 0x02, IN 0x82).
	bulkOutEndpoint = 2
	bulkInEndpoint  = 2
)

// usbProductClasses maps FLI product IDs to device classes.
var usbProductClasses = map[gousb.ID]proto.DeviceClass{
	0x0002: proto.ClassCamera,      // MaxCam
	0x0006: proto.ClassFocuser,     // DF-2 focuser
	0x0007: proto.ClassFilterWheel, // CFW filter wheel
	0x000a: proto.ClassCamera,      // ProLine/MicroLine
	0x000b: proto.ClassHSFilterWheel,
}

// usbAddressPrefix prefixes every USB transport address.
const usbAddressPrefix = "usb:"

// USB discovers and connects FLI devices on the USB bus using bulk
// endpoints. Addresses have the form "usb:<serial>" when the device
// reports a serial-number string, or "usb:<bus>.<addr>" otherwise.
// The bus/addr form is only stable until the device is re-plugged.
type USB struct {
	ctx *gousb.Context
}

// NewUSB creates the USB transport. Close releases the underlying
// libusb context.
func NewUSB() *USB {
	return &USB{ctx: gousb.NewContext()}
}

// Close releases the libusb context. Sessions opened through this
// transport must be closed first.
func (u *USB) Close() error {
	return u.ctx.Close()
}

// Scan enumerates FLI devices by matching USB descriptors against the
// known vendor/product identifiers. Ordering follows the USB subsystem
// and is not stable across scans.
func (u *USB) Scan() ([]Record, error) {
	var records []Record

	devs, err := u.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != gousb.ID(VendorID) {
			return false
		}
		_, known := usbProductClasses[desc.Product]
		return known
	})
	for _, dev := range devs {
		class := usbProductClasses[dev.Desc.Product]

		address := ""
		if serial, serr := dev.SerialNumber(); serr == nil && serial != "" {
			address = usbAddressPrefix + serial
		} else {
			address = fmt.Sprintf("%s%d.%d", usbAddressPrefix, dev.Desc.Bus, dev.Desc.Address)
		}

		name, perr := dev.Product()
		if perr != nil || name == "" {
			name = fmt.Sprintf("FLI %s (%s)", class, dev.Desc.Product)
		}

		records = append(records, Record{Address: address, Name: name, Class: class})
		dev.Close()
	}
	if err != nil {
		// OpenDevices can return devices alongside an error for units
		// it could not open; a partial scan is still a valid snapshot.
		if len(records) == 0 {
			return nil, fmt.Errorf("usb scan: %w: %v", proto.ErrIO, err)
		}
	}
	return records, nil
}

// ValidateAddress checks the "usb:" address syntax.
func (u *USB) ValidateAddress(address string) error {
	rest, ok := strings.CutPrefix(address, usbAddressPrefix)
	if !ok || rest == "" {
		return fmt.Errorf("%w: USB address %q must have the form usb:<serial> or usb:<bus>.<addr>",
			proto.ErrInvalidArgument, address)
	}
	return nil
}

// Connect claims the device's bulk endpoints and returns a session.
func (u *USB) Connect(address string) (Session, error) {
	if err := u.ValidateAddress(address); err != nil {
		return nil, err
	}
	want := strings.TrimPrefix(address, usbAddressPrefix)

	devs, err := u.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != gousb.ID(VendorID) {
			return false
		}
		_, known := usbProductClasses[desc.Product]
		return known
	})
	if err != nil && len(devs) == 0 {
		return nil, fmt.Errorf("usb connect: %w: %v", proto.ErrIO, err)
	}

	var target *gousb.Device
	for _, dev := range devs {
		if target != nil {
			dev.Close()
			continue
		}
		serial, _ := dev.SerialNumber()
		busAddr := fmt.Sprintf("%d.%d", dev.Desc.Bus, dev.Desc.Address)
		if serial == want || busAddr == want {
			target = dev
			continue
		}
		dev.Close()
	}
	if target == nil {
		return nil, fmt.Errorf("usb connect %s: %w", address, proto.ErrNotFound)
	}

	sess, err := newUSBSession(target)
	if err != nil {
		target.Close()
		return nil, fmt.Errorf("usb connect %s: %w", address, err)
	}
	return sess, nil
}

// usbSession owns one claimed USB interface with its bulk endpoint pair.
type usbSession struct {
	dev  *gousb.Device
	done func()
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint
}

func newUSBSession(dev *gousb.Device) (*usbSession, error) {
	// The kernel fliusb driver may hold the interface.
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, fmt.Errorf("%w: auto-detach: %v", proto.ErrIO, err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		return nil, fmt.Errorf("%w: claim interface: %v", proto.ErrIO, err)
	}

	out, err := intf.OutEndpoint(bulkOutEndpoint)
	if err != nil {
		done()
		return nil, fmt.Errorf("%w: out endpoint: %v", proto.ErrIO, err)
	}
	in, err := intf.InEndpoint(bulkInEndpoint)
	if err != nil {
		done()
		return nil, fmt.Errorf("%w: in endpoint: %v", proto.ErrIO, err)
	}

	return &usbSession{dev: dev, done: done, out: out, in: in}, nil
}

// Write sends bytes to the outbound bulk endpoint.
func (s *usbSession) Write(p []byte) (int, error) {
	n, err := s.out.Write(p)
	if err != nil {
		return n, mapUSBError(err)
	}
	return n, nil
}

// Read fills p from the inbound bulk endpoint, bounded by timeout.
func (s *usbSession) Read(p []byte, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	n, err := s.in.ReadContext(ctx, p)
	if err != nil {
		return n, mapUSBError(err)
	}
	return n, nil
}

// MaxTransferSize reports the inbound endpoint's maximum packet size.
func (s *usbSession) MaxTransferSize() int {
	return s.in.Desc.MaxPacketSize
}

// Close releases the interface claim and the device.
func (s *usbSession) Close() error {
	s.done()
	return s.dev.Close()
}

func mapUSBError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gousb.TransferTimedOut),
		errors.Is(err, gousb.ErrorTimeout):
		return fmt.Errorf("%w: %v", proto.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", proto.ErrIO, err)
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*USB)(nil)
	_ Session   = (*usbSession)(nil)
)
