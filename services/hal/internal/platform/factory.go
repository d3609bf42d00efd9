// services/hal/internal/platform/factory.go
package platform

import (
	"errors"
	"sync"

	"envhttpd/errcode"
	"envhttpd/types"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// Opener opens the bus named id for one bus type.
type Opener func(id string) (i2c.BusCloser, error)

// Factory opens buses by reference and hands out one shared handle per
// (type, id). Devices on the same bus therefore share one lock.
type Factory struct {
	mu      sync.Mutex
	openers map[string]Opener
	buses   map[string]*Shared
	trace   bool
}

// NewFactory returns a factory knowing the "periph" and "sim" bus types.
func NewFactory() *Factory {
	return &Factory{
		openers: map[string]Opener{
			"periph": openPeriph,
			"sim":    openSim,
		},
		buses: map[string]*Shared{},
	}
}

// Register adds or replaces the opener for a bus type.
func (f *Factory) Register(busType string, o Opener) {
	f.mu.Lock()
	f.openers[busType] = o
	f.mu.Unlock()
}

// Trace makes buses opened afterwards record every transaction.
func (f *Factory) Trace(on bool) {
	f.mu.Lock()
	f.trace = on
	f.mu.Unlock()
}

// ByRef returns the shared handle for ref, opening it on first use.
func (f *Factory) ByRef(ref types.BusRef) (*Shared, error) {
	key := ref.Type + ":" + ref.ID

	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.buses[key]; ok {
		return s, nil
	}
	open, ok := f.openers[ref.Type]
	if !ok {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "platform.open", Msg: "bus type " + ref.Type}
	}
	bc, err := open(ref.ID)
	if err != nil {
		return nil, errcode.New(errcode.UnknownBus, "platform.open", err)
	}
	s := &Shared{name: key, closer: bc, bus: bc}
	if f.trace {
		s.rec = &i2ctest.Record{Bus: bc}
		s.bus = s.rec
	}
	f.buses[key] = s
	return s, nil
}

// Buses returns every handle opened so far.
func (f *Factory) Buses() []*Shared {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Shared, 0, len(f.buses))
	for _, s := range f.buses {
		out = append(out, s)
	}
	return out
}

// Close closes every opened bus.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for k, s := range f.buses {
		if err := s.closer.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.buses, k)
	}
	return errors.Join(errs...)
}

// Shared serialises access to one physical bus. It satisfies the tinygo
// drivers.I2C shape the sensor drivers are written against.
type Shared struct {
	mu     sync.Mutex
	name   string
	bus    i2c.Bus
	closer interface{ Close() error }
	rec    *i2ctest.Record
}

func (s *Shared) String() string { return s.name }

// Tx runs one write-then-read transaction under the bus lock.
func (s *Shared) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bus.Tx(addr, w, r)
}

// Ops returns the recorded transactions, or nil when tracing is off.
func (s *Shared) Ops() []i2ctest.IO {
	if s.rec == nil {
		return nil
	}
	s.rec.Lock()
	defer s.rec.Unlock()
	return append([]i2ctest.IO(nil), s.rec.Ops...)
}
