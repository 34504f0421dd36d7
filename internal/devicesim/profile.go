package devicesim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openfli/fli-go/pkg/proto"
)

// Profile describes one simulated device.
type Profile struct {
	Model      string `yaml:"model"`
	Serial     string `yaml:"serial"`
	Class      string `yaml:"class"`
	HWRevision uint16 `yaml:"hwRevision"`
	FWRevision uint16 `yaml:"fwRevision"`

	// Camera geometry, in unbinned pixels.
	ArrayArea   AreaProfile `yaml:"arrayArea"`
	VisibleArea AreaProfile `yaml:"visibleArea"`

	// Pixel pitch in microns.
	PixelSizeX float64 `yaml:"pixelSizeX"`
	PixelSizeY float64 `yaml:"pixelSizeY"`

	// Modes are the camera readout mode names.
	Modes []string `yaml:"modes"`

	// Temperature is the ambient sensor reading in degrees Celsius.
	Temperature float64 `yaml:"temperature"`

	// Motion geometry. Wheels lists the banks of a multi-wheel
	// controller; a plain wheel or focuser uses Extent and Filters.
	Extent  int            `yaml:"extent"`
	Filters []string       `yaml:"filters"`
	Wheels  []WheelProfile `yaml:"wheels"`

	// HomeFails makes homing hit the travel limit without finding the
	// home sensor, the way a jammed mechanism does.
	HomeFails bool `yaml:"homeFails"`

	// MaxTransfer caps one read/write on the simulated endpoint.
	// Defaults to 64 bytes so multi-chunk exchanges are the common case.
	MaxTransfer int `yaml:"maxTransfer"`
}

// AreaProfile is a pixel rectangle in a profile.
type AreaProfile struct {
	ULX int32 `yaml:"ulx"`
	ULY int32 `yaml:"uly"`
	LRX int32 `yaml:"lrx"`
	LRY int32 `yaml:"lry"`
}

// WheelProfile is one bank of a multi-wheel controller.
type WheelProfile struct {
	Extent  int      `yaml:"extent"`
	Filters []string `yaml:"filters"`
}

// LoadProfile reads a profile from a YAML file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a profile from YAML bytes.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if _, err := p.deviceClass(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p Profile) deviceClass() (proto.DeviceClass, error) {
	switch p.Class {
	case "camera":
		return proto.ClassCamera, nil
	case "filter-wheel":
		return proto.ClassFilterWheel, nil
	case "hs-filter-wheel":
		return proto.ClassHSFilterWheel, nil
	case "focuser":
		return proto.ClassFocuser, nil
	case "raw":
		return proto.ClassRaw, nil
	default:
		return proto.ClassUnknown, fmt.Errorf("profile: unknown device class %q", p.Class)
	}
}

// CameraProfile is a ready-made cooled camera: a 1024x1024 visible
// area inside a slightly larger array, 9 micron pixels.
func CameraProfile() Profile {
	return Profile{
		Model:       "MicroLine ML1001E",
		Serial:      "ML0012345",
		Class:       "camera",
		HWRevision:  0x0100,
		FWRevision:  0x0203,
		ArrayArea:   AreaProfile{ULX: 0, ULY: 0, LRX: 1056, LRY: 1033},
		VisibleArea: AreaProfile{ULX: 24, ULY: 9, LRX: 1048, LRY: 1033},
		PixelSizeX:  9.0,
		PixelSizeY:  9.0,
		Modes:       []string{"1MHz", "8MHz"},
		Temperature: 22.5,
	}
}

// FilterWheelProfile is a ready-made five-slot wheel.
func FilterWheelProfile() Profile {
	return Profile{
		Model:      "CFW-2-7",
		Serial:     "CF0054321",
		Class:      "filter-wheel",
		HWRevision: 0x0001,
		FWRevision: 0x0104,
		Extent:     2400,
		Filters:    []string{"L", "R", "G", "B", "Ha"},
	}
}

// FocuserProfile is a ready-made focuser with 7000 steps of travel.
func FocuserProfile() Profile {
	return Profile{
		Model:       "DF-2",
		Serial:      "DF0000042",
		Class:       "focuser",
		HWRevision:  0x0002,
		FWRevision:  0x0101,
		Extent:      7000,
		Temperature: 18.0,
	}
}
