package fli_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/openfli/fli-go/internal/devicesim"
	"github.com/openfli/fli-go/pkg/camera"
	"github.com/openfli/fli-go/pkg/device"
	"github.com/openfli/fli-go/pkg/log"
	"github.com/openfli/fli-go/pkg/proto"
)

// newObservatory builds a registry over a simulated bus carrying one
// camera, one filter wheel and one focuser.
func newObservatory(t *testing.T, logger log.Logger) *device.Registry {
	t.Helper()

	bus := devicesim.NewTransport()
	for name, p := range map[string]devicesim.Profile{
		"cam0":   devicesim.CameraProfile(),
		"wheel0": devicesim.FilterWheelProfile(),
		"foc0":   devicesim.FocuserProfile(),
	} {
		if _, err := bus.Add(name, p); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	opts := []device.RegistryOption{device.WithTransport(device.InterfaceUSB, bus)}
	if logger != nil {
		opts = append(opts, device.WithLogger(logger))
	}
	reg := device.NewRegistry(opts...)
	t.Cleanup(func() { reg.CloseAll() })
	return reg
}

// TestImagingSession runs the whole stack end to end: enumerate, open,
// select a filter, focus, cool, expose, read out, close.
func TestImagingSession(t *testing.T) {
	reg := newObservatory(t, nil)
	dom := device.NewDomain(device.InterfaceUSB, proto.ClassUnknown)

	found := 0
	for _, err := range reg.Enumerate(dom) {
		if err != nil {
			t.Fatalf("enumerate: %v", err)
		}
		found++
	}
	if found != 3 {
		t.Fatalf("found %d devices, want 3", found)
	}

	// Position the filter wheel.
	wh, err := reg.Open(dom, "sim:wheel0")
	if err != nil {
		t.Fatalf("open wheel: %v", err)
	}
	wheel, err := reg.FilterWheel(wh)
	if err != nil {
		t.Fatalf("FilterWheel(): %v", err)
	}
	if err := wheel.SetFilterPos(1); err != nil {
		t.Fatalf("SetFilterPos(1): %v", err)
	}
	if name, _ := wheel.FilterName(wheel.FilterPos()); name != "R" {
		t.Errorf("filter = %q, want R", name)
	}

	// Focus.
	fh, err := reg.Open(dom, "sim:foc0")
	if err != nil {
		t.Fatalf("open focuser: %v", err)
	}
	focuser, err := reg.Focuser(fh)
	if err != nil {
		t.Fatalf("Focuser(): %v", err)
	}
	if err := focuser.Home(); err != nil {
		t.Fatalf("Home(): %v", err)
	}
	if _, err := focuser.Step(1200); err != nil {
		t.Fatalf("Step(): %v", err)
	}

	// Cool and expose.
	ch, err := reg.Open(dom, "sim:cam0")
	if err != nil {
		t.Fatalf("open camera: %v", err)
	}
	cam, err := reg.Camera(ch)
	if err != nil {
		t.Fatalf("Camera(): %v", err)
	}
	if err := cam.SetTemperature(-15); err != nil {
		t.Fatalf("SetTemperature(): %v", err)
	}

	area := cam.VisibleArea()
	roi := camera.Area{ULX: area.ULX, ULY: area.ULY, LRX: area.ULX + 128, LRY: area.ULY + 128}
	if err := cam.SetImageArea(roi); err != nil {
		t.Fatalf("SetImageArea(): %v", err)
	}
	if err := cam.SetBinning(2, 2); err != nil {
		t.Fatalf("SetBinning(): %v", err)
	}
	if err := cam.SetExposureTime(20 * time.Millisecond); err != nil {
		t.Fatalf("SetExposureTime(): %v", err)
	}

	if err := cam.Expose(); err != nil {
		t.Fatalf("Expose(): %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		remaining, err := cam.ExposureStatus()
		if err != nil {
			t.Fatalf("ExposureStatus(): %v", err)
		}
		if remaining == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("exposure never finished")
		}
		time.Sleep(time.Millisecond)
	}
	if err := cam.EndExposure(); err != nil {
		t.Fatalf("EndExposure(): %v", err)
	}

	dims := cam.ReadoutDimensions()
	row := make([]byte, cam.RowBytes())
	total := 0
	for r := 0; r < int(dims.Height); r++ {
		n, err := cam.GrabRow(row)
		if err != nil {
			t.Fatalf("GrabRow(%d): %v", r, err)
		}
		total += n
	}
	if want := int(dims.Width) * int(dims.Height) * 2; total != want {
		t.Errorf("frame bytes = %d, want %d", total, want)
	}
	if cam.State() != camera.StateIdle {
		t.Errorf("camera state = %s after full readout", cam.State())
	}

	for _, h := range []device.Handle{wh, fh, ch} {
		if err := reg.Close(h); err != nil {
			t.Errorf("Close(): %v", err)
		}
	}
}

// TestConcurrentUnits drives the camera and the focuser at the same
// time; per-unit locks never contend across physical units.
func TestConcurrentUnits(t *testing.T) {
	reg := newObservatory(t, nil)
	dom := device.NewDomain(device.InterfaceUSB, proto.ClassUnknown)

	ch, err := reg.Open(dom, "sim:cam0")
	if err != nil {
		t.Fatalf("open camera: %v", err)
	}
	fh, err := reg.Open(dom, "sim:foc0")
	if err != nil {
		t.Fatalf("open focuser: %v", err)
	}
	if err := reg.Lock(ch); err != nil {
		t.Fatalf("Lock(camera): %v", err)
	}
	if err := reg.TryLock(fh); err != nil {
		t.Fatalf("TryLock(focuser) while camera locked: %v", err)
	}

	done := make(chan error, 2)
	go func() {
		cam, err := reg.Camera(ch)
		if err != nil {
			done <- err
			return
		}
		if err := cam.SetExposureTime(0); err != nil {
			done <- err
			return
		}
		if err := cam.Expose(); err != nil {
			done <- err
			return
		}
		done <- cam.CancelExposure()
	}()
	go func() {
		f, err := reg.Focuser(fh)
		if err != nil {
			done <- err
			return
		}
		if err := f.Home(); err != nil {
			done <- err
			return
		}
		_, err = f.Step(300)
		done <- err
	}()

	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent op: %v", err)
		}
	}
}

// TestProtocolLogCapture records an imaging exchange to a CBOR log
// file and reads it back filtered.
func TestProtocolLogCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.flog")
	fileLogger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger(): %v", err)
	}

	reg := newObservatory(t, fileLogger)
	reg.SetDebugLevel(log.LevelAll | log.LevelIO)

	h, err := reg.Open(device.NewDomain(device.InterfaceUSB, proto.ClassCamera), "sim:cam0")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cam, err := reg.Camera(h)
	if err != nil {
		t.Fatalf("Camera(): %v", err)
	}
	if _, err := cam.Temperature(); err != nil {
		t.Fatalf("Temperature(): %v", err)
	}
	if err := reg.Close(h); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if err := fileLogger.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}

	reader, err := log.NewFilteredReader(path, log.Filter{Opcode: proto.OpReadTemperature.String()})
	if err != nil {
		t.Fatalf("NewFilteredReader(): %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err != nil {
			break
		}
		if event.Address != "sim:cam0" {
			t.Errorf("event address = %q", event.Address)
		}
		count++
	}
	if count == 0 {
		t.Errorf("no READ_TEMPERATURE events captured")
	}
}

// TestErrorTaxonomy spot-checks that failures wrap their sentinels all
// the way up through the registry.
func TestErrorTaxonomy(t *testing.T) {
	reg := newObservatory(t, nil)
	dom := device.NewDomain(device.InterfaceUSB, proto.ClassUnknown)

	if _, err := reg.Open(dom, "sim:ghost"); !errors.Is(err, proto.ErrNotFound) {
		t.Errorf("open missing = %v, want ErrNotFound", err)
	}

	h, err := reg.Open(dom, "sim:cam0")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cam, err := reg.Camera(h)
	if err != nil {
		t.Fatalf("Camera(): %v", err)
	}

	if err := cam.SetBinning(99, 1); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetBinning(99) = %v, want ErrInvalidArgument", err)
	}
	if err := cam.EndExposure(); !errors.Is(err, proto.ErrInvalidState) {
		t.Errorf("EndExposure() while idle = %v, want ErrInvalidState", err)
	}

	if err := reg.Close(h); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if _, err := reg.Camera(h); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("Camera() on closed handle = %v, want ErrInvalidArgument", err)
	}
}
