package tmp117

import (
	"errors"
	"math"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/tester"

	"envhttpd/errcode"
)

func newMock(c *qt.C) (*tester.I2CBus, *tester.I2CDevice16) {
	bus := tester.NewI2CBus(c)
	dev := tester.NewI2CDevice16(c, Address)
	dev.Registers[regTempResult] = 0x0C80 // 25.0 °C
	dev.Registers[regConfig] = 0x0220    // power-on default
	dev.Registers[regDeviceID] = 0x1117  // revision 1
	bus.AddDevice(dev)
	return bus, dev
}

func TestCompensateIsExactLinearScale(t *testing.T) {
	c := qt.New(t)
	cases := []struct {
		raw  RawSample
		want float64
	}{
		{0, 0},
		{math.MaxInt16, 32767.0 / 128.0},
		{math.MinInt16, -256.0},
		{256, 2.0},
		{-1, -0.0078125},
	}
	for _, tc := range cases {
		r, err := Compensate(tc.raw)
		c.Assert(err, qt.IsNil)
		c.Assert(r.TemperatureC, qt.Equals, tc.want, qt.Commentf("raw %d", tc.raw))
		c.Assert(r.TemperatureC, qt.Equals, float64(tc.raw)*Resolution)
	}
}

func TestCompensateIsDeterministic(t *testing.T) {
	c := qt.New(t)
	a, _ := Compensate(12345)
	b, _ := Compensate(12345)
	c.Assert(math.Float64bits(a.TemperatureC), qt.Equals, math.Float64bits(b.TemperatureC))
}

func TestConfigureContinuous(t *testing.T) {
	c := qt.New(t)
	bus, dev := newMock(c)

	d := New(bus)
	c.Assert(d.Configure(Config{Averaging: Average8, Cycle: 4}), qt.IsNil)
	c.Assert(d.Connected(), qt.IsTrue)
	c.Assert(dev.Registers[regConfig], qt.Equals, uint16(4<<cfgConvShift|uint16(Average8)<<cfgAvgShift))
}

func TestConfigureWrongDevice(t *testing.T) {
	c := qt.New(t)
	bus, dev := newMock(c)
	dev.Registers[regDeviceID] = 0x0190 // TMP119 family id

	d := New(bus)
	err := d.Configure()
	c.Assert(errcode.Of(err), qt.Equals, errcode.WrongDevice)
	c.Assert(d.Connected(), qt.IsFalse)
}

func TestReadRawSignExtends(t *testing.T) {
	c := qt.New(t)
	bus, dev := newMock(c)

	d := New(bus)
	c.Assert(d.Configure(), qt.IsNil)

	raw, err := d.ReadRaw()
	c.Assert(err, qt.IsNil)
	c.Assert(raw, qt.Equals, RawSample(3200))

	dev.Registers[regTempResult] = 0xFF80 // -1.0 °C
	raw, r, err := d.Read()
	c.Assert(err, qt.IsNil)
	c.Assert(raw, qt.Equals, RawSample(-128))
	c.Assert(r.TemperatureC, qt.Equals, -1.0)
}

func TestReadBusFailureIsIOError(t *testing.T) {
	c := qt.New(t)
	bus, dev := newMock(c)

	d := New(bus)
	c.Assert(d.Configure(), qt.IsNil)

	nack := errors.New("i2c: nack")
	dev.Err = nack
	_, _, err := d.Read()
	c.Assert(errcode.Of(err), qt.Equals, errcode.IO)
	c.Assert(errors.Is(err, nack), qt.IsTrue)
}

func TestOneShotTimesOutWithoutDataReady(t *testing.T) {
	c := qt.New(t)
	bus, dev := newMock(c)

	d := New(bus)
	c.Assert(d.Configure(Config{Mode: ModeOneShot, ConvTimeout: 10 * time.Millisecond}), qt.IsNil)
	c.Assert(dev.Registers[regConfig]&cfgModMask, qt.Equals, uint16(ModeShutdown)<<cfgModShift)

	// The mock never raises Data_Ready on its own.
	_, err := d.ReadRaw()
	c.Assert(errcode.Of(err), qt.Equals, errcode.Timeout)
	c.Assert(dev.Registers[regConfig]&cfgModMask, qt.Equals, uint16(ModeOneShot)<<cfgModShift)
}

func TestUpdate(t *testing.T) {
	c := qt.New(t)
	bus, dev := newMock(c)

	d := New(bus)
	c.Assert(d.Configure(), qt.IsNil)
	c.Assert(d.Update(drivers.Humidity), qt.IsNil)
	raw, _ := d.Last()
	c.Assert(raw, qt.Equals, RawSample(0))

	c.Assert(d.Update(drivers.AllMeasurements), qt.IsNil)
	raw, r := d.Last()
	c.Assert(raw, qt.Equals, RawSample(3200))
	c.Assert(r.TemperatureC, qt.Equals, 25.0)
	c.Assert(d.Temperature(), qt.Equals, int32(25000))

	dev.Err = errors.New("i2c: nack")
	c.Assert(errcode.Of(d.Update(drivers.Temperature)), qt.Equals, errcode.IO)
	c.Assert(d.Temperature(), qt.Equals, int32(25000))
}
