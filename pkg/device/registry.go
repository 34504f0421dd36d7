package device

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openfli/fli-go/pkg/camera"
	"github.com/openfli/fli-go/pkg/log"
	"github.com/openfli/fli-go/pkg/motion"
	"github.com/openfli/fli-go/pkg/proto"
	"github.com/openfli/fli-go/pkg/transport"
)

// Handle refers to one opened device. The zero Handle is invalid.
// Handles are values: copying one does not duplicate the device, and a
// handle stays dead after its device is closed even if the registry
// reuses the slot.
type Handle struct {
	index int
	gen   uint32
}

// slot is one arena entry for an opened device.
type slot struct {
	gen      uint32
	iface    Interface
	address  string
	connID   string
	session  transport.Session
	eng      *proto.Engine
	identity proto.Identity

	cam     *camera.Camera
	wheel   *motion.FilterWheel
	focuser *motion.Focuser
}

// Registry discovers, opens and tracks FLI devices. All methods are
// safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	cond       *sync.Cond
	transports map[Interface]transport.Transport
	slots      []*slot
	nextGen    uint32

	// locks maps a transport address to the handle holding its
	// advisory lock.
	locks map[string]Handle

	logger   log.Logger
	filtered log.Logger
	level    *log.LevelVar
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTransport registers a transport for an interface domain.
func WithTransport(i Interface, t transport.Transport) RegistryOption {
	return func(r *Registry) {
		r.transports[i] = t
	}
}

// WithLogger attaches an event logger. Events pass through the
// registry's debug-level mask; see SetDebugLevel.
func WithLogger(logger log.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry with the given transports and logger.
// The debug level starts at LevelNone; raise it with SetDebugLevel to
// see events.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		transports: make(map[Interface]transport.Transport),
		locks:      make(map[string]Handle),
		nextGen:    1,
		logger:     log.NoopLogger{},
		level:      &log.LevelVar{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cond = sync.NewCond(&r.mu)
	r.filtered = log.NewLevelFilter(r.logger, r.level)
	return r
}

// SetDebugLevel replaces the event level mask. The mask applies to all
// sessions, including ones already open.
func (r *Registry) SetDebugLevel(l log.Level) {
	r.level.Set(l)
}

// DebugLevel returns the current event level mask.
func (r *Registry) DebugLevel() log.Level {
	return r.level.Level()
}

// Enumerate scans the domain's transport and yields its devices. Each
// range over the returned sequence performs a fresh scan, so a device
// plugged in between two ranges appears in the second. When the domain
// names a class, devices of other classes are skipped; transports that
// cannot tell classes apart without connecting report ClassUnknown and
// are never skipped.
func (r *Registry) Enumerate(d Domain) iter.Seq2[transport.Record, error] {
	return func(yield func(transport.Record, error) bool) {
		t, ok := r.transports[d.Interface()]
		if !ok {
			yield(transport.Record{}, fmt.Errorf("%w: no transport for %s",
				proto.ErrNotFound, d.Interface()))
			return
		}
		records, err := t.Scan()
		if err != nil {
			yield(transport.Record{}, err)
			return
		}
		want := d.Class()
		for _, rec := range records {
			if want != proto.ClassUnknown && rec.Class != proto.ClassUnknown && rec.Class != want {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Open connects to the device at address, runs the identify handshake
// and builds the class-specific state machine. When the domain names a
// class the identified device must match it. Open fails with ErrBusy
// while another handle holds the address's advisory lock.
func (r *Registry) Open(d Domain, address string) (Handle, error) {
	t, ok := r.transports[d.Interface()]
	if !ok {
		return Handle{}, fmt.Errorf("%w: no transport for %s", proto.ErrNotFound, d.Interface())
	}
	if err := t.ValidateAddress(address); err != nil {
		return Handle{}, err
	}

	r.mu.Lock()
	if _, held := r.locks[address]; held {
		r.mu.Unlock()
		return Handle{}, fmt.Errorf("%w: device %s is locked", proto.ErrBusy, address)
	}
	r.mu.Unlock()

	session, err := t.Connect(address)
	if err != nil {
		return Handle{}, err
	}

	connID := uuid.NewString()
	eng := proto.NewEngine(session, proto.WithLogger(r.filtered, connID, address))

	identity, err := identify(eng)
	if err != nil {
		session.Close()
		return Handle{}, err
	}
	if want := d.Class(); want != proto.ClassUnknown && identity.Class != want {
		session.Close()
		return Handle{}, fmt.Errorf("%w: device at %s is a %s, not a %s",
			proto.ErrNotFound, address, identity.Class, want)
	}

	s := &slot{
		iface:    d.Interface(),
		address:  address,
		connID:   connID,
		session:  session,
		eng:      eng,
		identity: identity,
	}
	if err := r.initClass(s); err != nil {
		session.Close()
		return Handle{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	s.gen = r.nextGen
	r.nextGen++

	index := -1
	for i, existing := range r.slots {
		if existing == nil {
			index = i
			break
		}
	}
	if index < 0 {
		index = len(r.slots)
		r.slots = append(r.slots, nil)
	}
	r.slots[index] = s

	h := Handle{index: index, gen: s.gen}
	r.logOpen(s, "opened")
	return h, nil
}

func identify(eng *proto.Engine) (proto.Identity, error) {
	resp, err := eng.Exchange(proto.OpIdentify, nil)
	if err != nil {
		return proto.Identity{}, fmt.Errorf("identify: %w", err)
	}
	return proto.ParseIdentity(resp)
}

// initClass builds the state machine matching the identified class.
// Raw and unknown devices get no state machine; the identity and raw
// passthrough methods still work on them.
func (r *Registry) initClass(s *slot) error {
	opts := []camera.Option{camera.WithLogger(r.filtered, s.connID, s.address)}
	mopts := []motion.Option{motion.WithLogger(r.filtered, s.connID, s.address)}

	var err error
	switch s.identity.Class {
	case proto.ClassCamera:
		s.cam, err = camera.New(s.eng, opts...)
	case proto.ClassFilterWheel, proto.ClassHSFilterWheel:
		s.wheel, err = motion.NewFilterWheel(s.eng, mopts...)
	case proto.ClassFocuser:
		s.focuser, err = motion.NewFocuser(s.eng, mopts...)
	}
	return err
}

// lookup resolves a handle to its slot, failing on stale or closed
// handles. Must be called with the mutex held.
func (r *Registry) lookup(h Handle) (*slot, error) {
	if h.index < 0 || h.index >= len(r.slots) {
		return nil, fmt.Errorf("%w: invalid handle", proto.ErrInvalidArgument)
	}
	s := r.slots[h.index]
	if s == nil || s.gen != h.gen {
		return nil, fmt.Errorf("%w: stale or closed handle", proto.ErrInvalidArgument)
	}
	return s, nil
}

// Close releases the device behind the handle: its advisory lock if
// held, then the transport session. Closing an already closed handle
// is an error.
func (r *Registry) Close(h Handle) error {
	r.mu.Lock()
	s, err := r.lookup(h)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	if holder, held := r.locks[s.address]; held && holder == h {
		delete(r.locks, s.address)
		r.cond.Broadcast()
	}
	r.slots[h.index] = nil
	r.mu.Unlock()

	r.logOpen(s, "closed")
	return s.session.Close()
}

// CloseAll closes every open handle and any transports that hold
// resources. The registry stays usable for new opens afterwards only
// if its transports do.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	open := make([]*slot, 0, len(r.slots))
	for i, s := range r.slots {
		if s != nil {
			open = append(open, s)
			r.slots[i] = nil
		}
	}
	r.locks = make(map[string]Handle)
	r.cond.Broadcast()
	r.mu.Unlock()

	var firstErr error
	for _, s := range open {
		if err := s.session.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, t := range r.transports {
		if closer, ok := t.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Lock takes the advisory lock on the handle's physical unit, blocking
// while another handle holds it. The lock is not reentrant: locking
// twice from the same handle is an error.
func (r *Registry) Lock(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		s, err := r.lookup(h)
		if err != nil {
			return err
		}
		holder, held := r.locks[s.address]
		if !held {
			r.locks[s.address] = h
			return nil
		}
		if holder == h {
			return fmt.Errorf("%w: handle already holds the lock on %s",
				proto.ErrInvalidState, s.address)
		}
		r.cond.Wait()
	}
}

// TryLock takes the advisory lock without blocking, failing with
// ErrBusy while another handle holds it.
func (r *Registry) TryLock(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return err
	}
	holder, held := r.locks[s.address]
	if !held {
		r.locks[s.address] = h
		return nil
	}
	if holder == h {
		return fmt.Errorf("%w: handle already holds the lock on %s",
			proto.ErrInvalidState, s.address)
	}
	return fmt.Errorf("%w: device %s is locked", proto.ErrBusy, s.address)
}

// Unlock releases the advisory lock. Unlocking a lock the handle does
// not hold is an error.
func (r *Registry) Unlock(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return err
	}
	holder, held := r.locks[s.address]
	if !held || holder != h {
		return fmt.Errorf("%w: handle does not hold the lock on %s",
			proto.ErrInvalidState, s.address)
	}
	delete(r.locks, s.address)
	r.cond.Broadcast()
	return nil
}

// Camera returns the camera state machine behind the handle.
func (r *Registry) Camera(h Handle) (*camera.Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	if s.cam == nil {
		return nil, fmt.Errorf("%w: device at %s is a %s, not a camera",
			proto.ErrInvalidArgument, s.address, s.identity.Class)
	}
	return s.cam, nil
}

// FilterWheel returns the filter wheel state machine behind the handle.
func (r *Registry) FilterWheel(h Handle) (*motion.FilterWheel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	if s.wheel == nil {
		return nil, fmt.Errorf("%w: device at %s is a %s, not a filter wheel",
			proto.ErrInvalidArgument, s.address, s.identity.Class)
	}
	return s.wheel, nil
}

// Focuser returns the focuser state machine behind the handle.
func (r *Registry) Focuser(h Handle) (*motion.Focuser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	if s.focuser == nil {
		return nil, fmt.Errorf("%w: device at %s is a %s, not a focuser",
			proto.ErrInvalidArgument, s.address, s.identity.Class)
	}
	return s.focuser, nil
}

// engine resolves a handle to its protocol engine.
func (r *Registry) engine(h Handle) (*proto.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return nil, err
	}
	return s.eng, nil
}

func (r *Registry) logOpen(s *slot, what string) {
	r.filtered.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Address:      s.address,
		Layer:        log.LayerDevice,
		Level:        log.LevelInfo,
		State: &log.StateChangeEvent{
			Entity:   "handle",
			NewState: what,
			Reason:   s.identity.Class.String(),
		},
	})
}
