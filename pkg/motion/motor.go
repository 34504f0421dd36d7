package motion

import (
	"sync"
	"time"

	"github.com/openfli/fli-go/pkg/log"
	"github.com/openfli/fli-go/pkg/proto"
)

// motionTimeout bounds synchronous moves and homing. Focusers cover
// their full extent in well under a minute; wheels are faster.
const motionTimeout = 60 * time.Second

// Motor drives one stepper through a protocol engine. All methods are
// safe for concurrent use.
type Motor struct {
	mu  sync.Mutex
	eng *proto.Engine

	logger  log.Logger
	connID  string
	address string
	entity  string

	extent int32
	homed  bool
}

// Option configures a Motor.
type Option func(*Motor)

// WithLogger attaches a device-layer event logger. connID identifies
// the session and address the device in emitted events.
func WithLogger(logger log.Logger, connID, address string) Option {
	return func(m *Motor) {
		m.logger = logger
		m.connID = connID
		m.address = address
	}
}

// NewMotor creates a motor over the given engine and fetches the
// travel extent from the device. entity names the mechanism in emitted
// events ("focuser", "filter-wheel").
func NewMotor(eng *proto.Engine, entity string, opts ...Option) (*Motor, error) {
	m := &Motor{
		eng:    eng,
		logger: log.NoopLogger{},
		entity: entity,
	}
	for _, opt := range opts {
		opt(m)
	}

	resp, err := m.eng.Exchange(proto.OpGetExtent, nil)
	if err != nil {
		return nil, err
	}
	r := proto.NewPayloadReader(resp)
	m.extent = r.I32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Extent returns the travel extent in steps, measured from the home
// position.
func (m *Motor) Extent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.extent)
}

// Homed reports whether the motor has found its home position since
// the session opened.
func (m *Motor) Homed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.homed
}

// Step moves by the given number of steps (negative toward home) and
// blocks until the move completes. A move that runs into a travel
// limit stops there: the device clamps at the limit and the return
// value reports the steps actually taken, which then fall short of the
// request. Step(0) stops an in-flight asynchronous move where it is.
func (m *Motor) Step(steps int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var w proto.PayloadWriter
	w.I32(int32(steps))
	resp, err := m.eng.ExchangeTimeout(proto.OpStep, w.Payload(), motionTimeout)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	moved := r.I32()
	if err := r.Err(); err != nil {
		return 0, err
	}
	return int(moved), nil
}

// StepAsync starts a move and returns without waiting for it. Poll
// StepsRemaining for completion; the device clamps at travel limits
// and rejects overlapping moves with a busy status.
func (m *Motor) StepAsync(steps int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var w proto.PayloadWriter
	w.I32(int32(steps))
	_, err := m.eng.Exchange(proto.OpStepAsync, w.Payload())
	return err
}

// StepsRemaining returns the steps left in the in-progress move, zero
// when the motor is at rest.
func (m *Motor) StepsRemaining() (int, error) {
	resp, err := m.eng.Exchange(proto.OpGetStepsRemaining, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	left := r.I32()
	return int(left), r.Err()
}

// Position returns the current position in steps from home. Before
// homing the value is relative to wherever the motor powered up.
func (m *Motor) Position() (int, error) {
	resp, err := m.eng.Exchange(proto.OpGetPosition, nil)
	if err != nil {
		return 0, err
	}
	r := proto.NewPayloadReader(resp)
	pos := r.I32()
	return int(pos), r.Err()
}

// Home drives the motor to its home sensor and blocks until it gets
// there; afterwards Position reports zero. A device that reaches the
// travel limit without seeing the sensor reports a hardware fault and
// the motor stays unhomed.
func (m *Motor) Home() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.eng.ExchangeTimeout(proto.OpHome, nil, motionTimeout); err != nil {
		return err
	}

	wasHomed := m.homed
	m.homed = true
	if !wasHomed {
		m.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: m.connID,
			Address:      m.address,
			Layer:        log.LayerDevice,
			Level:        log.LevelInfo,
			State: &log.StateChangeEvent{
				Entity:   m.entity,
				OldState: "UNHOMED",
				NewState: "HOMED",
				Reason:   "home complete",
			},
		})
	}
	return nil
}
