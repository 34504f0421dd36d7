package motion

import (
	"fmt"
	"sync"

	"github.com/openfli/fli-go/pkg/proto"
)

// Filter position sentinels.
const (
	// FilterPositionUnknown is reported before the wheel has been
	// positioned in this session.
	FilterPositionUnknown = -1

	// FilterPositionCurrent passed to SetFilterPos re-seats the wheel at
	// its current slot, re-homing first. Useful after a power glitch may
	// have slipped the mechanism.
	FilterPositionCurrent = 0x200
)

// FilterWheel positions a filter wheel by slot index. Slot moves are
// step moves against the underlying motor: the wheel divides its
// travel extent evenly among the slots, with slot zero at the home
// position.
type FilterWheel struct {
	*Motor

	fmu   sync.Mutex
	count int
	slot  int
}

// NewFilterWheel creates a filter wheel over the given engine and
// fetches the slot count and travel extent from the device.
func NewFilterWheel(eng *proto.Engine, opts ...Option) (*FilterWheel, error) {
	m, err := NewMotor(eng, "filter-wheel", opts...)
	if err != nil {
		return nil, err
	}
	f := &FilterWheel{Motor: m, slot: FilterPositionUnknown}
	if f.count, err = f.fetchCount(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FilterWheel) fetchCount() (int, error) {
	resp, err := f.eng.Exchange(proto.OpGetFilterCount, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	count := r.U8()
	if err := r.Err(); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: device reports zero filter slots", proto.ErrProtocol)
	}
	return int(count), nil
}

// FilterCount returns the number of filter slots in the active wheel.
func (f *FilterWheel) FilterCount() int {
	f.fmu.Lock()
	defer f.fmu.Unlock()
	return f.count
}

// FilterName returns the device's name for a filter slot.
func (f *FilterWheel) FilterName(slot int) (string, error) {
	f.fmu.Lock()
	count := f.count
	f.fmu.Unlock()

	if slot < 0 || slot >= count {
		return "", fmt.Errorf("%w: filter slot %d outside 0..%d",
			proto.ErrInvalidArgument, slot, count-1)
	}

	var w proto.PayloadWriter
	w.U8(uint8(slot))
	resp, err := f.eng.Exchange(proto.OpGetFilterName, w.Payload())
	if err != nil {
		return "", err
	}
	r := proto.NewPayloadReader(resp)
	name := r.String()
	return name, r.Err()
}

// FilterPos returns the slot the wheel sits at, or
// FilterPositionUnknown before the first positioning of this session.
func (f *FilterWheel) FilterPos() int {
	f.fmu.Lock()
	defer f.fmu.Unlock()
	return f.slot
}

// SetFilterPos moves the wheel to a slot, homing first if the wheel
// has not been positioned this session. FilterPositionCurrent re-homes
// and returns to the slot last selected.
func (f *FilterWheel) SetFilterPos(pos int) error {
	f.fmu.Lock()
	defer f.fmu.Unlock()

	target := pos
	if pos == FilterPositionCurrent {
		if f.slot == FilterPositionUnknown {
			target = 0
		} else {
			target = f.slot
		}
		f.slot = FilterPositionUnknown
	} else if pos < 0 || pos >= f.count {
		return fmt.Errorf("%w: filter slot %d outside 0..%d",
			proto.ErrInvalidArgument, pos, f.count-1)
	}

	if f.slot == FilterPositionUnknown {
		if err := f.Home(); err != nil {
			return err
		}
		f.slot = 0
	}

	if target != f.slot {
		steps := (target - f.slot) * f.stepsPerSlot()
		if _, err := f.Step(steps); err != nil {
			return err
		}
		f.slot = target
	}
	return nil
}

// stepsPerSlot returns the step distance between adjacent slots. Must
// be called with fmu held.
func (f *FilterWheel) stepsPerSlot() int {
	return f.Extent() / f.count
}

// SetActiveWheel selects which wheel a multi-wheel controller drives.
// The slot count and extent are refetched for the new wheel, and its
// position is unknown until the next SetFilterPos.
func (f *FilterWheel) SetActiveWheel(wheel int) error {
	f.fmu.Lock()
	defer f.fmu.Unlock()

	if wheel < 0 || wheel > 0xff {
		return fmt.Errorf("%w: wheel index %d", proto.ErrInvalidArgument, wheel)
	}

	var w proto.PayloadWriter
	w.U8(uint8(wheel))
	if _, err := f.eng.Exchange(proto.OpSetActiveWheel, w.Payload()); err != nil {
		return err
	}

	count, err := f.fetchCount()
	if err != nil {
		return err
	}
	resp, err := f.eng.Exchange(proto.OpGetExtent, nil)
	if err != nil {
		return err
	}
	r := proto.NewPayloadReader(resp)
	extent := r.I32()
	if err := r.Err(); err != nil {
		return err
	}

	f.count = count
	f.slot = FilterPositionUnknown

	f.Motor.mu.Lock()
	f.Motor.extent = extent
	f.Motor.homed = false
	f.Motor.mu.Unlock()
	return nil
}

// ActiveWheel returns the wheel bank the controller currently drives.
// Single-wheel devices report zero.
func (f *FilterWheel) ActiveWheel() (int, error) {
	resp, err := f.eng.Exchange(proto.OpGetActiveWheel, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	bank := r.U8()
	return int(bank), r.Err()
}
