// Package hal owns the sensors. A Station is built from the device list in
// the configuration, serialises all bus traffic and produces one Snapshot
// per Poll.
package hal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"envhttpd/bus"
	"envhttpd/errcode"
	"envhttpd/services/hal/internal/core"
	"envhttpd/services/hal/internal/platform"
	"envhttpd/types"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	// Device builders.
	_ "envhttpd/services/hal/devices/bme280dev"
	_ "envhttpd/services/hal/devices/tmp117dev"
)

var (
	TopicSnapshot = bus.T("env", "snapshot")
	TopicError    = bus.T("env", "error")
	TopicState    = bus.T("hal", "state")
)

// Options tune a Station. The zero value is usable.
type Options struct {
	// Conn receives snapshots, poll errors and state. May be nil.
	Conn   *bus.Connection
	Logger *slog.Logger
	// Trace records every bus transaction; see Station.Trace.
	Trace bool
	// Openers adds or replaces bus openers by BusRef.Type.
	Openers map[string]func(id string) (i2c.BusCloser, error)
}

type entry struct {
	dev   core.Device
	ready bool
}

// Station polls one combined and one precision sensor.
type Station struct {
	mu sync.Mutex

	log   *slog.Logger
	conn  *bus.Connection
	buses *platform.Factory

	combined  *entry
	precision *entry
	all       []*entry
}

// New builds every configured device and initialises it. A device that
// fails to initialise is retried on the next Poll; only configuration
// errors are returned.
func New(ctx context.Context, cfg types.HALConfig, opts Options) (*Station, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	f := platform.NewFactory()
	f.Trace(opts.Trace)
	for k, o := range opts.Openers {
		f.Register(k, o)
	}

	s := &Station{log: log.With("component", "hal"), conn: opts.Conn, buses: f}
	if err := s.build(ctx, cfg); err != nil {
		_ = f.Close()
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var initErr error
	for _, e := range s.all {
		if err := s.initLocked(ctx, e); err != nil && initErr == nil {
			initErr = err
		}
	}
	if initErr != nil {
		s.publishState("degraded", "init_failed", initErr)
	} else {
		s.publishState("ready", "initialised", nil)
	}
	return s, nil
}

func (s *Station) build(ctx context.Context, cfg types.HALConfig) error {
	for _, d := range cfg.Devices {
		b, ok := core.Lookup(d.Type)
		if !ok {
			return &errcode.E{C: errcode.UnknownDevice, Op: "hal.build", Msg: d.ID + ": type " + d.Type}
		}
		shared, err := s.buses.ByRef(d.BusRef)
		if err != nil {
			return fmt.Errorf("hal: %s: %w", d.ID, err)
		}
		dev, err := b.Build(ctx, core.BuilderInput{
			ID:      d.ID,
			Type:    d.Type,
			Addr:    d.Addr,
			Params:  d.Params,
			Bus:     shared,
			BusName: d.BusRef.ID,
		})
		if err != nil {
			return fmt.Errorf("hal: %s: %w", d.ID, err)
		}

		e := &entry{dev: dev}
		switch dev.(type) {
		case core.CombinedSource:
			if s.combined != nil {
				return &errcode.E{C: errcode.InvalidParams, Op: "hal.build", Msg: "more than one combined sensor"}
			}
			s.combined = e
		case core.PrecisionSource:
			if s.precision != nil {
				return &errcode.E{C: errcode.InvalidParams, Op: "hal.build", Msg: "more than one precision sensor"}
			}
			s.precision = e
		default:
			return &errcode.E{C: errcode.Unsupported, Op: "hal.build", Msg: d.ID}
		}
		s.all = append(s.all, e)
	}
	if s.combined == nil || s.precision == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "hal.build", Msg: "need one bme280 and one tmp117"}
	}
	return nil
}

func (s *Station) initLocked(ctx context.Context, e *entry) error {
	if e.ready {
		return nil
	}
	if err := e.dev.Init(ctx); err != nil {
		s.log.Warn("sensor init failed", "sensor", e.dev.ID(), "code", errcode.Of(err), "err", err)
		return err
	}
	e.ready = true
	s.log.Info("sensor ready", "sensor", e.dev.ID())
	return nil
}

// Poll reads and compensates the combined sensor, then the precision
// sensor. The first failure ends the poll and no snapshot is produced.
func (s *Station) Poll(ctx context.Context) (types.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, failed, err := s.pollLocked(ctx)
	if err != nil {
		s.publish(TopicError, types.PollError{
			Sensor: failed,
			Code:   string(errcode.Of(err)),
			TS:     time.Now().UnixNano(),
		}, false)
		return types.Snapshot{}, err
	}
	s.publish(TopicSnapshot, snap, true)
	return snap, nil
}

func (s *Station) pollLocked(ctx context.Context) (types.Snapshot, string, error) {
	var snap types.Snapshot

	cs := s.combined.dev.(core.CombinedSource)
	if err := s.initLocked(ctx, s.combined); err != nil {
		return snap, cs.ID(), err
	}
	c, err := cs.ReadCombined(ctx)
	if err != nil {
		return snap, cs.ID(), err
	}

	ps := s.precision.dev.(core.PrecisionSource)
	if err := s.initLocked(ctx, s.precision); err != nil {
		return snap, ps.ID(), err
	}
	p, err := ps.ReadPrecision(ctx)
	if err != nil {
		return snap, ps.ID(), err
	}

	snap.Combined = c
	snap.Precision = p
	snap.TS = time.Now().UnixMilli()
	return snap, "", nil
}

// Sensors describes the configured devices in poll order.
func (s *Station) Sensors() []types.SensorInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.SensorInfo, 0, len(s.all))
	for _, e := range []*entry{s.combined, s.precision} {
		out = append(out, e.dev.Info())
	}
	return out
}

// Ready reports whether every device has initialised.
func (s *Station) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.all {
		if !e.ready {
			return false
		}
	}
	return true
}

// Trace returns the transactions recorded per bus when Options.Trace was
// set.
func (s *Station) Trace() map[string][]i2ctest.IO {
	out := map[string][]i2ctest.IO{}
	for _, b := range s.buses.Buses() {
		if ops := b.Ops(); ops != nil {
			out[b.String()] = ops
		}
	}
	return out
}

// Close releases the devices and buses.
func (s *Station) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, e := range s.all {
		if err := e.dev.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, s.buses.Close())
	s.publishState("stopped", "closed", nil)
	return errors.Join(errs...)
}

func (s *Station) publishState(level, status string, err error) {
	pl := types.HALState{Level: level, Status: status, TS: time.Now().UnixNano()}
	if err != nil {
		pl.Error = string(errcode.Of(err))
	}
	s.publish(TopicState, pl, true)
}

func (s *Station) publish(t bus.Topic, payload any, retained bool) {
	if s.conn == nil {
		return
	}
	s.conn.Publish(&bus.Message{Topic: t, Payload: payload, Retained: retained})
}
