package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/openfli/fli-go/pkg/camera"
	"github.com/openfli/fli-go/pkg/device"
	"github.com/openfli/fli-go/pkg/motion"
	"github.com/openfli/fli-go/pkg/proto"
)

func (a *app) cmdList() error {
	found := 0
	for rec, err := range a.reg.Enumerate(a.domain) {
		if err != nil {
			return err
		}
		fmt.Printf("%-24s %-16s %s\n", rec.Address, rec.Class, rec.Name)
		found++
	}
	if found == 0 {
		fmt.Println("no devices found")
	}
	return nil
}

func (a *app) cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: info <address>")
	}

	h, err := a.reg.Open(a.domain, args[0])
	if err != nil {
		return err
	}
	defer a.reg.Close(h)

	id, err := a.reg.Identity(h)
	if err != nil {
		return err
	}
	serial, err := a.reg.SerialString(h)
	if err != nil {
		return err
	}

	fmt.Printf("model:    %s\n", id.Model)
	fmt.Printf("class:    %s\n", id.Class)
	fmt.Printf("serial:   %s\n", serial)
	fmt.Printf("hardware: 0x%04x\n", id.HWRevision)
	fmt.Printf("firmware: 0x%04x\n", id.FWRevision)
	fmt.Printf("library:  %s\n", device.LibVersion())

	switch id.Class {
	case proto.ClassCamera:
		cam, err := a.reg.Camera(h)
		if err != nil {
			return err
		}
		printCameraInfo(cam)
	case proto.ClassFilterWheel, proto.ClassHSFilterWheel:
		w, err := a.reg.FilterWheel(h)
		if err != nil {
			return err
		}
		fmt.Printf("slots:    %d\n", w.FilterCount())
		for slot := 0; slot < w.FilterCount(); slot++ {
			name, err := w.FilterName(slot)
			if err != nil {
				return err
			}
			fmt.Printf("  %d: %s\n", slot, name)
		}
	case proto.ClassFocuser:
		f, err := a.reg.Focuser(h)
		if err != nil {
			return err
		}
		fmt.Printf("extent:   %d steps\n", f.Extent())
		if celsius, err := f.ReadTemperature(proto.TemperatureInternal); err == nil {
			fmt.Printf("temp:     %.1f C\n", celsius)
		}
	}
	return nil
}

func printCameraInfo(cam *camera.Camera) {
	array, visible := cam.ArrayArea(), cam.VisibleArea()
	px, py := cam.PixelSize()
	fmt.Printf("array:    %dx%d\n", array.Width(), array.Height())
	fmt.Printf("visible:  (%d,%d)-(%d,%d)\n", visible.ULX, visible.ULY, visible.LRX, visible.LRY)
	fmt.Printf("pixel:    %.2f x %.2f um\n", px, py)
	if celsius, err := cam.Temperature(); err == nil {
		fmt.Printf("temp:     %.1f C\n", celsius)
	}
	if power, err := cam.CoolerPower(); err == nil {
		fmt.Printf("cooler:   %.0f mW\n", power)
	}
	for mode := uint8(0); ; mode++ {
		name, err := cam.ModeString(mode)
		if err != nil {
			break
		}
		fmt.Printf("mode %d:   %s\n", mode, name)
	}
}

func (a *app) cmdExpose(args []string) error {
	fs := flag.NewFlagSet("expose", flag.ContinueOnError)
	expTime := fs.Duration("time", 100*time.Millisecond, "exposure duration")
	bin := fs.Int("bin", 1, "bin factor (both axes)")
	dark := fs.Bool("dark", false, "take a dark frame")
	out := fs.String("out", "frame.raw", "output file for raw pixels")
	if len(args) < 1 {
		return fmt.Errorf("usage: expose <address> [flags]")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	h, err := a.reg.Open(device.NewDomain(a.domain.Interface(), proto.ClassCamera), args[0])
	if err != nil {
		return err
	}
	defer a.reg.Close(h)

	cam, err := a.reg.Camera(h)
	if err != nil {
		return err
	}

	if err := cam.SetBinning(*bin, *bin); err != nil {
		return err
	}
	if err := cam.SetExposureTime(*expTime); err != nil {
		return err
	}
	if *dark {
		if err := cam.SetFrameType(camera.FrameTypeDark); err != nil {
			return err
		}
	}

	dims := cam.ReadoutDimensions()
	fmt.Printf("exposing %v, %dx%d binned %dx\n", *expTime, dims.Width, dims.Height, *bin)

	if err := cam.Expose(); err != nil {
		return err
	}
	for {
		remaining, err := cam.ExposureStatus()
		if err != nil {
			return err
		}
		if remaining == 0 {
			break
		}
		time.Sleep(remaining / 2)
	}
	if err := cam.EndExposure(); err != nil {
		return err
	}

	frame := make([]byte, 0, int(dims.Width)*int(dims.Height)*cam.BitDepth().BytesPerPixel())
	row := make([]byte, cam.RowBytes())
	for r := 0; r < int(dims.Height); r++ {
		n, err := cam.GrabRow(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", r, err)
		}
		frame = append(frame, row[:n]...)
	}

	if err := os.WriteFile(*out, frame, 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes to %s\n", len(frame), *out)
	return nil
}

func (a *app) cmdTemp(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: temp <address> [celsius]")
	}

	h, err := a.reg.Open(a.domain, args[0])
	if err != nil {
		return err
	}
	defer a.reg.Close(h)

	cam, err := a.reg.Camera(h)
	if err != nil {
		return err
	}

	if len(args) > 1 {
		setpoint, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad set-point %q: %w", args[1], err)
		}
		if err := cam.SetTemperature(setpoint); err != nil {
			return err
		}
		fmt.Printf("set-point %.1f C\n", setpoint)
	}

	celsius, err := cam.Temperature()
	if err != nil {
		return err
	}
	power, err := cam.CoolerPower()
	if err != nil {
		return err
	}
	fmt.Printf("ccd %.1f C, cooler %.0f mW\n", celsius, power)
	return nil
}

// motor opens the device at address and returns its motor, accepting
// either a focuser or a filter wheel.
func (a *app) motor(address string) (device.Handle, *motion.Motor, error) {
	h, err := a.reg.Open(a.domain, address)
	if err != nil {
		return device.Handle{}, nil, err
	}
	if f, err := a.reg.Focuser(h); err == nil {
		return h, f.Motor, nil
	}
	w, err := a.reg.FilterWheel(h)
	if err != nil {
		a.reg.Close(h)
		return device.Handle{}, nil, fmt.Errorf("device at %s has no motor", address)
	}
	return h, w.Motor, nil
}

func (a *app) cmdStep(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: step <address> <steps>")
	}
	steps, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad step count %q: %w", args[1], err)
	}

	h, m, err := a.motor(args[0])
	if err != nil {
		return err
	}
	defer a.reg.Close(h)

	moved, err := m.Step(steps)
	if err != nil {
		return err
	}
	pos, err := m.Position()
	if err != nil {
		return err
	}
	fmt.Printf("moved %d steps, position %d\n", moved, pos)
	return nil
}

func (a *app) cmdHome(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: home <address>")
	}

	h, m, err := a.motor(args[0])
	if err != nil {
		return err
	}
	defer a.reg.Close(h)

	if err := m.Home(); err != nil {
		return err
	}
	fmt.Println("homed")
	return nil
}

func (a *app) cmdFilter(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: filter <address> [slot]")
	}

	h, err := a.reg.Open(a.domain, args[0])
	if err != nil {
		return err
	}
	defer a.reg.Close(h)

	w, err := a.reg.FilterWheel(h)
	if err != nil {
		return err
	}

	if len(args) > 1 {
		slot, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad slot %q: %w", args[1], err)
		}
		if err := w.SetFilterPos(slot); err != nil {
			return err
		}
	}

	pos := w.FilterPos()
	if pos == motion.FilterPositionUnknown {
		fmt.Println("position unknown (not homed)")
		return nil
	}
	name, err := w.FilterName(pos)
	if err != nil {
		return err
	}
	fmt.Printf("slot %d (%s)\n", pos, name)
	return nil
}
