package camera

import (
	"errors"
	"testing"
	"time"

	"github.com/openfli/fli-go/internal/devicesim"
	"github.com/openfli/fli-go/pkg/proto"
)

func newTestCamera(t *testing.T) *Camera {
	t.Helper()

	bus := devicesim.NewTransport()
	if _, err := bus.Add("cam", devicesim.CameraProfile()); err != nil {
		t.Fatalf("add device: %v", err)
	}
	sess, err := bus.Connect("sim:cam")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { sess.Close() })

	cam, err := New(proto.NewEngine(sess))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return cam
}

func TestNewFetchesGeometryAndDefaults(t *testing.T) {
	cam := newTestCamera(t)

	wantVisible := Area{ULX: 24, ULY: 9, LRX: 1048, LRY: 1033}
	if cam.VisibleArea() != wantVisible {
		t.Errorf("VisibleArea() = %+v, want %+v", cam.VisibleArea(), wantVisible)
	}
	if cam.ArrayArea().Width() != 1056 {
		t.Errorf("ArrayArea() width = %d", cam.ArrayArea().Width())
	}
	if x, y := cam.PixelSize(); x != 9.0 || y != 9.0 {
		t.Errorf("PixelSize() = %v, %v", x, y)
	}

	if cam.ImageArea() != wantVisible {
		t.Errorf("default image area = %+v, want full visible area", cam.ImageArea())
	}
	if h, v := cam.Binning(); h != 1 || v != 1 {
		t.Errorf("default binning = %dx%d", h, v)
	}
	if cam.BitDepth() != Depth16Bit {
		t.Errorf("default depth = %d", cam.BitDepth())
	}
	if cam.State() != StateIdle {
		t.Errorf("initial state = %s", cam.State())
	}
}

func TestConfigValidation(t *testing.T) {
	cam := newTestCamera(t)

	if err := cam.SetBinning(0, 1); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetBinning(0,1) = %v, want ErrInvalidArgument", err)
	}
	if err := cam.SetBinning(1, 17); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetBinning(1,17) = %v, want ErrInvalidArgument", err)
	}

	outside := Area{ULX: 0, ULY: 0, LRX: 2000, LRY: 2000}
	if err := cam.SetImageArea(outside); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetImageArea(outside) = %v, want ErrInvalidArgument", err)
	}
	empty := Area{ULX: 100, ULY: 100, LRX: 100, LRY: 200}
	if err := cam.SetImageArea(empty); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetImageArea(empty) = %v, want ErrInvalidArgument", err)
	}

	// 101 wide area does not divide by hbin 2; the error comes at
	// configuration time, not at exposure time.
	odd := Area{ULX: 24, ULY: 9, LRX: 125, LRY: 109}
	if err := cam.SetImageArea(odd); err != nil {
		t.Fatalf("SetImageArea(odd) error: %v", err)
	}
	if err := cam.SetBinning(2, 2); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetBinning over odd area = %v, want ErrInvalidArgument", err)
	}

	if err := cam.SetExposureTime(-time.Second); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetExposureTime(-1s) = %v, want ErrInvalidArgument", err)
	}
	if err := cam.SetBitDepth(12); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetBitDepth(12) = %v, want ErrInvalidArgument", err)
	}
}

func TestConfigRejectedDuringExposure(t *testing.T) {
	cam := newTestCamera(t)

	if err := cam.SetExposureTime(10 * time.Second); err != nil {
		t.Fatalf("SetExposureTime() error: %v", err)
	}
	if err := cam.Expose(); err != nil {
		t.Fatalf("Expose() error: %v", err)
	}
	if cam.State() != StateExposing {
		t.Fatalf("state = %s, want EXPOSING", cam.State())
	}

	if err := cam.SetBinning(2, 2); !errors.Is(err, proto.ErrInvalidState) {
		t.Errorf("SetBinning() during exposure = %v, want ErrInvalidState", err)
	}
	if h, v := cam.Binning(); h != 1 || v != 1 {
		t.Errorf("binning changed to %dx%d by a rejected call", h, v)
	}
	if err := cam.Expose(); !errors.Is(err, proto.ErrInvalidState) {
		t.Errorf("second Expose() = %v, want ErrInvalidState", err)
	}

	remaining, err := cam.ExposureStatus()
	if err != nil {
		t.Fatalf("ExposureStatus() error: %v", err)
	}
	if remaining == 0 {
		t.Errorf("remaining = 0 right after starting a 10s exposure")
	}

	if err := cam.CancelExposure(); err != nil {
		t.Fatalf("CancelExposure() error: %v", err)
	}
	if cam.State() != StateIdle {
		t.Errorf("state after cancel = %s", cam.State())
	}
}

func TestZeroDurationExposure(t *testing.T) {
	cam := newTestCamera(t)

	if err := cam.SetExposureTime(0); err != nil {
		t.Fatalf("SetExposureTime(0) error: %v", err)
	}
	if err := cam.Expose(); err != nil {
		t.Fatalf("Expose() error: %v", err)
	}

	remaining, err := cam.ExposureStatus()
	if err != nil {
		t.Fatalf("ExposureStatus() error: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %v, want 0 for a bias frame", remaining)
	}

	if err := cam.EndExposure(); err != nil {
		t.Fatalf("EndExposure() error: %v", err)
	}
	if cam.State() != StateReading {
		t.Errorf("state = %s, want READING", cam.State())
	}
}

func TestFullReadoutCycle(t *testing.T) {
	cam := newTestCamera(t)

	area := Area{ULX: 24, ULY: 9, LRX: 24 + 64, LRY: 9 + 32}
	if err := cam.SetImageArea(area); err != nil {
		t.Fatalf("SetImageArea() error: %v", err)
	}
	if err := cam.SetBinning(2, 2); err != nil {
		t.Fatalf("SetBinning() error: %v", err)
	}
	if err := cam.SetExposureTime(0); err != nil {
		t.Fatalf("SetExposureTime() error: %v", err)
	}

	dims := cam.ReadoutDimensions()
	if dims.Width != 32 || dims.Height != 16 {
		t.Fatalf("dims = %dx%d, want 32x16", dims.Width, dims.Height)
	}

	if err := cam.Expose(); err != nil {
		t.Fatalf("Expose() error: %v", err)
	}
	if err := cam.EndExposure(); err != nil {
		t.Fatalf("EndExposure() error: %v", err)
	}

	rowBytes := cam.RowBytes()
	if rowBytes != int(dims.Width)*2 {
		t.Fatalf("RowBytes() = %d, want %d", rowBytes, dims.Width*2)
	}

	// GrabRow in a too-small buffer is rejected without consuming a row.
	small := make([]byte, rowBytes-1)
	if _, err := cam.GrabRow(small); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Fatalf("GrabRow(small) = %v, want ErrInvalidArgument", err)
	}
	if cam.RowsRemaining() != int(dims.Height) {
		t.Fatalf("rejected grab consumed a row")
	}

	total := 0
	buf := make([]byte, rowBytes)
	for row := 0; row < int(dims.Height); row++ {
		n, err := cam.GrabRow(buf)
		if err != nil {
			t.Fatalf("GrabRow(row %d) error: %v", row, err)
		}
		total += n
	}

	if want := int(dims.Width) * int(dims.Height) * 2; total != want {
		t.Errorf("frame bytes = %d, want width*height*2 = %d", total, want)
	}
	if cam.State() != StateIdle {
		t.Errorf("state after last row = %s, want IDLE", cam.State())
	}
	if _, err := cam.GrabRow(buf); !errors.Is(err, proto.ErrInvalidState) {
		t.Errorf("GrabRow() past last row = %v, want ErrInvalidState", err)
	}
}

func TestExternalTriggerFlow(t *testing.T) {
	cam := newTestCamera(t)

	if err := cam.ControlShutter(ShutterExternalTriggerHigh); err != nil {
		t.Fatalf("ControlShutter() error: %v", err)
	}
	if err := cam.SetExposureTime(0); err != nil {
		t.Fatalf("SetExposureTime() error: %v", err)
	}
	if err := cam.Expose(); err != nil {
		t.Fatalf("Expose() error: %v", err)
	}
	if cam.State() != StateWaitingForTrigger {
		t.Fatalf("state = %s, want WAITING_FOR_TRIGGER", cam.State())
	}

	if err := cam.TriggerExposure(); err != nil {
		t.Fatalf("TriggerExposure() error: %v", err)
	}
	if cam.State() != StateExposing {
		t.Errorf("state = %s, want EXPOSING", cam.State())
	}

	if err := cam.TriggerExposure(); !errors.Is(err, proto.ErrInvalidState) {
		t.Errorf("second trigger = %v, want ErrInvalidState", err)
	}
	if err := cam.CancelExposure(); err != nil {
		t.Fatalf("CancelExposure() error: %v", err)
	}
}

func TestBackgroundFlushStopsOnExpose(t *testing.T) {
	cam := newTestCamera(t)

	if err := cam.ControlBackgroundFlush(true); err != nil {
		t.Fatalf("ControlBackgroundFlush() error: %v", err)
	}
	if !cam.BackgroundFlushing() {
		t.Fatalf("background flush not recorded")
	}

	if err := cam.SetExposureTime(0); err != nil {
		t.Fatalf("SetExposureTime() error: %v", err)
	}
	if err := cam.Expose(); err != nil {
		t.Fatalf("Expose() error: %v", err)
	}
	if cam.BackgroundFlushing() {
		t.Errorf("background flush still reported active after Expose")
	}
	if err := cam.CancelExposure(); err != nil {
		t.Fatalf("CancelExposure() error: %v", err)
	}

	if err := cam.ControlBackgroundFlush(true); err != nil {
		t.Fatalf("ControlBackgroundFlush() error: %v", err)
	}
	if err := cam.ControlShutter(ShutterClose); err != nil {
		t.Fatalf("ControlShutter() error: %v", err)
	}
	if cam.BackgroundFlushing() {
		t.Errorf("background flush still reported active after ControlShutter")
	}
}

func TestEnvironment(t *testing.T) {
	cam := newTestCamera(t)

	if err := cam.SetTemperature(-100); !errors.Is(err, proto.ErrInvalidArgument) {
		t.Errorf("SetTemperature(-100) = %v, want ErrInvalidArgument", err)
	}
	if err := cam.SetTemperature(-20); err != nil {
		t.Fatalf("SetTemperature(-20) error: %v", err)
	}

	celsius, err := cam.Temperature()
	if err != nil {
		t.Fatalf("Temperature() error: %v", err)
	}
	if celsius != 22.5 {
		t.Errorf("Temperature() = %v, want 22.5", celsius)
	}

	external, err := cam.ReadTemperature(proto.TemperatureExternal)
	if err != nil {
		t.Fatalf("ReadTemperature(external) error: %v", err)
	}
	if external <= celsius {
		t.Errorf("external %v not above internal %v", external, celsius)
	}

	power, err := cam.CoolerPower()
	if err != nil {
		t.Fatalf("CoolerPower() error: %v", err)
	}
	if power <= 0 {
		t.Errorf("CoolerPower() = %v with a -20 set-point", power)
	}

	if err := cam.SetFanSpeed(FanOn); err != nil {
		t.Fatalf("SetFanSpeed() error: %v", err)
	}
}

func TestCameraModes(t *testing.T) {
	cam := newTestCamera(t)

	name, err := cam.ModeString(0)
	if err != nil {
		t.Fatalf("ModeString(0) error: %v", err)
	}
	if name != "1MHz" {
		t.Errorf("ModeString(0) = %q", name)
	}

	if _, err := cam.ModeString(9); !errors.Is(err, proto.ErrNotFound) {
		t.Errorf("ModeString(9) = %v, want ErrNotFound", err)
	}

	if err := cam.SetMode(1); err != nil {
		t.Fatalf("SetMode(1) error: %v", err)
	}
	mode, err := cam.Mode()
	if err != nil {
		t.Fatalf("Mode() error: %v", err)
	}
	if mode != 1 {
		t.Errorf("Mode() = %d, want 1", mode)
	}
}
