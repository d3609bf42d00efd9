package bme280

import (
	"errors"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"

	"envhttpd/errcode"
)

// Worked example from the Bosch BMP280 datasheet (section 3.12); the
// temperature/pressure trimming is shared with the BME280. The humidity
// constants are a typical BME280 NVM set.
var datasheetCal = Calibration{
	T1: 27504, T2: 26435, T3: -1000,
	P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140, P6: -7, P7: 15500, P8: -14600, P9: 6000,
	H1: 75, H2: 362, H3: 0, H4: 313, H5: 50, H6: 30,
}

var datasheetRaw = RawSample{Temperature: 519888, Pressure: 415148, Humidity: 28502}

func TestCompensateDatasheetVector(t *testing.T) {
	c := qt.New(t)
	cal := datasheetCal

	r, err := Compensate(datasheetRaw, &cal)
	c.Assert(err, qt.IsNil)
	c.Assert(math.Abs(r.TemperatureC-25.08) < 0.01, qt.IsTrue, qt.Commentf("temperature %v", r.TemperatureC))
	c.Assert(math.Abs(r.PressureHPa-1006.5327) < 0.01, qt.IsTrue, qt.Commentf("pressure %v", r.PressureHPa))
	c.Assert(math.Abs(r.HumidityPct-46.6593) < 0.001, qt.IsTrue, qt.Commentf("humidity %v", r.HumidityPct))
}

func TestCompensateTemperatureFineValue(t *testing.T) {
	c := qt.New(t)
	cal := datasheetCal
	_, tFine := CompensateTemperature(datasheetRaw.Temperature, &cal)
	c.Assert(tFine, qt.Equals, int32(128422))
}

func TestCompensateIsDeterministic(t *testing.T) {
	c := qt.New(t)
	cal := datasheetCal

	a, err := Compensate(datasheetRaw, &cal)
	c.Assert(err, qt.IsNil)
	b, err := Compensate(datasheetRaw, &cal)
	c.Assert(err, qt.IsNil)

	c.Assert(math.Float64bits(a.TemperatureC), qt.Equals, math.Float64bits(b.TemperatureC))
	c.Assert(math.Float64bits(a.PressureHPa), qt.Equals, math.Float64bits(b.PressureHPa))
	c.Assert(math.Float64bits(a.HumidityPct), qt.Equals, math.Float64bits(b.HumidityPct))
}

func TestPressureAndHumidityUseFineTemperature(t *testing.T) {
	c := qt.New(t)
	cal := datasheetCal

	r, err := Compensate(datasheetRaw, &cal)
	c.Assert(err, qt.IsNil)

	_, tFine := CompensateTemperature(datasheetRaw.Temperature, &cal)
	p, err := CompensatePressure(datasheetRaw.Pressure, tFine, &cal)
	c.Assert(err, qt.IsNil)
	c.Assert(p, qt.Equals, r.PressureHPa)
	c.Assert(CompensateHumidity(datasheetRaw.Humidity, tFine, &cal), qt.Equals, r.HumidityPct)

	// Feeding the raw temperature instead of t_fine gives a different answer.
	pRaw, err := CompensatePressure(datasheetRaw.Pressure, datasheetRaw.Temperature, &cal)
	if err == nil {
		c.Assert(pRaw, qt.Not(qt.Equals), r.PressureHPa)
	}
	c.Assert(CompensateHumidity(datasheetRaw.Humidity, datasheetRaw.Temperature, &cal), qt.Not(qt.Equals), r.HumidityPct)

	// A warmer sample moves pressure and humidity even with identical P/H counts.
	warmer := datasheetRaw
	warmer.Temperature += 20000
	w, err := Compensate(warmer, &cal)
	c.Assert(err, qt.IsNil)
	c.Assert(w.TemperatureC > r.TemperatureC, qt.IsTrue)
	c.Assert(w.PressureHPa, qt.Not(qt.Equals), r.PressureHPa)
	c.Assert(w.HumidityPct, qt.Not(qt.Equals), r.HumidityPct)
}

func TestCompensateCalibrationErrors(t *testing.T) {
	c := qt.New(t)

	_, err := Compensate(datasheetRaw, nil)
	c.Assert(errcode.Of(err), qt.Equals, errcode.Calibration)

	_, err = Compensate(datasheetRaw, &Calibration{})
	c.Assert(errors.Is(err, errcode.Calibration), qt.IsTrue)

	noP1 := datasheetCal
	noP1.P1 = 0
	_, err = Compensate(datasheetRaw, &noP1)
	c.Assert(errcode.Of(err), qt.Equals, errcode.Calibration)
}

func TestCompensateClampsToSensorRange(t *testing.T) {
	c := qt.New(t)
	cal := datasheetCal

	hot, _ := CompensateTemperature(0xFFFFF, &cal)
	c.Assert(hot, qt.Equals, maxTemperatureC)

	_, tFine := CompensateTemperature(datasheetRaw.Temperature, &cal)
	c.Assert(CompensateHumidity(0, tFine, &cal), qt.Equals, minHumidityPct)
	c.Assert(CompensateHumidity(0xFFFF, tFine, &cal), qt.Equals, maxHumidityPct)
}

func TestParseCalibrationNibbles(t *testing.T) {
	c := qt.New(t)
	tp, h1, h := encodeCalibration(datasheetCal)
	c.Assert(parseCalibration(tp, h1, h), qt.Equals, datasheetCal)

	neg := datasheetCal
	neg.H4, neg.H5, neg.H6 = -200, -7, -3
	tp, h1, h = encodeCalibration(neg)
	c.Assert(parseCalibration(tp, h1, h), qt.Equals, neg)
}

// encodeCalibration is the inverse of parseCalibration.
func encodeCalibration(cal Calibration) (tp [24]byte, h1 byte, h [7]byte) {
	words := []uint16{
		cal.T1, uint16(cal.T2), uint16(cal.T3),
		cal.P1, uint16(cal.P2), uint16(cal.P3), uint16(cal.P4), uint16(cal.P5),
		uint16(cal.P6), uint16(cal.P7), uint16(cal.P8), uint16(cal.P9),
	}
	for i, w := range words {
		tp[2*i] = byte(w)
		tp[2*i+1] = byte(w >> 8)
	}
	h1 = cal.H1
	h[0] = byte(uint16(cal.H2))
	h[1] = byte(uint16(cal.H2) >> 8)
	h[2] = cal.H3
	h[3] = byte(cal.H4 >> 4)
	h[4] = byte(cal.H4&0x0F) | byte(cal.H5&0x0F)<<4
	h[5] = byte(cal.H5 >> 4)
	h[6] = byte(cal.H6)
	return tp, h1, h
}
