package platform

import (
	"errors"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"envhttpd/drivers/bme280"
	"envhttpd/drivers/tmp117"
	"envhttpd/errcode"
	"envhttpd/types"
)

var simRef = types.BusRef{Type: "sim", ID: "sim0"}

func TestFactorySharesHandlePerBus(t *testing.T) {
	c := qt.New(t)
	f := NewFactory()
	defer f.Close()

	a, err := f.ByRef(simRef)
	c.Assert(err, qt.IsNil)
	b, err := f.ByRef(simRef)
	c.Assert(err, qt.IsNil)
	c.Assert(a, qt.Equals, b)

	other, err := f.ByRef(types.BusRef{Type: "sim", ID: "sim1"})
	c.Assert(err, qt.IsNil)
	c.Assert(other, qt.Not(qt.Equals), a)
	c.Assert(f.Buses(), qt.HasLen, 2)
}

func TestFactoryUnknownBusType(t *testing.T) {
	c := qt.New(t)
	f := NewFactory()

	_, err := f.ByRef(types.BusRef{Type: "spi", ID: "0"})
	c.Assert(errcode.Of(err), qt.Equals, errcode.UnknownBus)
}

func TestFactoryOpenerError(t *testing.T) {
	c := qt.New(t)
	f := NewFactory()
	boom := errors.New("no such adapter")
	f.Register("sim", func(string) (i2c.BusCloser, error) { return nil, boom })

	_, err := f.ByRef(simRef)
	c.Assert(errcode.Of(err), qt.Equals, errcode.UnknownBus)
	c.Assert(errors.Is(err, boom), qt.IsTrue)
}

func TestTraceRecordsTransactions(t *testing.T) {
	c := qt.New(t)
	f := NewFactory()
	f.Trace(true)

	s, err := f.ByRef(simRef)
	c.Assert(err, qt.IsNil)

	var r [1]byte
	c.Assert(s.Tx(SimBME280Addr, []byte{0xD0}, r[:]), qt.IsNil)
	c.Assert(r[0], qt.Equals, byte(0x60))
	c.Assert(s.Ops(), qt.DeepEquals, []i2ctest.IO{
		{Addr: SimBME280Addr, W: []byte{0xD0}, R: []byte{0x60}},
	})
}

func TestUntracedBusHasNoOps(t *testing.T) {
	c := qt.New(t)
	s, err := NewFactory().ByRef(simRef)
	c.Assert(err, qt.IsNil)
	c.Assert(s.Tx(SimTMP117Addr, []byte{0x0F}, make([]byte, 2)), qt.IsNil)
	c.Assert(s.Ops(), qt.IsNil)
}

func TestSharedReplaysPlayback(t *testing.T) {
	c := qt.New(t)
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x48, W: []byte{0x0F}, R: []byte{0x01, 0x17}},
		},
		DontPanic: true,
	}
	f := NewFactory()
	f.Register("playback", func(string) (i2c.BusCloser, error) { return pb, nil })

	s, err := f.ByRef(types.BusRef{Type: "playback"})
	c.Assert(err, qt.IsNil)

	d := tmp117.New(s)
	c.Assert(d.Connected(), qt.IsTrue)
	c.Assert(f.Close(), qt.IsNil)
}

func TestSimServesDatasheetBME280(t *testing.T) {
	c := qt.New(t)
	sim := NewSim("t")

	d := bme280.New(sim)
	c.Assert(d.Configure(), qt.IsNil)

	raw, r, err := d.Read()
	c.Assert(err, qt.IsNil)
	c.Assert(raw, qt.Equals, bme280.RawSample{
		Temperature: DatasheetRawT,
		Pressure:    DatasheetRawP,
		Humidity:    DatasheetRawH,
	})
	c.Assert(math.Abs(r.TemperatureC-25.08247793) < 1e-6, qt.IsTrue, qt.Commentf("T=%v", r.TemperatureC))
	c.Assert(math.Abs(r.PressureHPa-1006.53258) < 1e-3, qt.IsTrue, qt.Commentf("P=%v", r.PressureHPa))
	c.Assert(math.Abs(r.HumidityPct-46.65931) < 1e-3, qt.IsTrue, qt.Commentf("H=%v", r.HumidityPct))

	cal := d.Calibration()
	c.Assert(cal.H4, qt.Equals, int16(313))
	c.Assert(cal.H5, qt.Equals, int16(50))
}

func TestSimServesTMP117(t *testing.T) {
	c := qt.New(t)
	sim := NewSim("t")

	d := tmp117.New(sim)
	c.Assert(d.Configure(), qt.IsNil)
	raw, r, err := d.Read()
	c.Assert(err, qt.IsNil)
	c.Assert(raw, qt.Equals, tmp117.RawSample(DefaultTMP117Raw))
	c.Assert(r.TemperatureC, qt.Equals, 25.078125)

	sim.SetPrecisionRaw(-128)
	_, r, err = d.Read()
	c.Assert(err, qt.IsNil)
	c.Assert(r.TemperatureC, qt.Equals, -1.0)
}

func TestSimOneShotRaisesDataReady(t *testing.T) {
	c := qt.New(t)
	sim := NewSim("t")

	d := tmp117.New(sim)
	c.Assert(d.Configure(tmp117.Config{Mode: tmp117.ModeOneShot}), qt.IsNil)
	raw, err := d.ReadRaw()
	c.Assert(err, qt.IsNil)
	c.Assert(raw, qt.Equals, tmp117.RawSample(DefaultTMP117Raw))
}

func TestSimFailAndNack(t *testing.T) {
	c := qt.New(t)
	sim := NewSim("t")
	boom := errors.New("bus stuck")

	sim.Fail(SimTMP117Addr, boom)
	c.Assert(sim.Tx(SimTMP117Addr, []byte{0}, make([]byte, 2)), qt.Equals, boom)
	c.Assert(sim.Tx(SimBME280Addr, []byte{0xD0}, make([]byte, 1)), qt.IsNil)

	sim.Fail(SimTMP117Addr, nil)
	c.Assert(sim.Tx(SimTMP117Addr, []byte{0}, make([]byte, 2)), qt.IsNil)

	c.Assert(sim.Tx(0x10, []byte{0}, nil), qt.Equals, ErrNack)
}
