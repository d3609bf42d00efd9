package bme280

import (
	"encoding/binary"

	"envhttpd/errcode"
	"envhttpd/x/mathx"
)

// Calibration holds the per-device trimming constants (dig_*) burned into the
// sensor's NVM. Field signedness follows the datasheet table 16.
type Calibration struct {
	T1 uint16
	T2 int16
	T3 int16

	P1 uint16
	P2 int16
	P3 int16
	P4 int16
	P5 int16
	P6 int16
	P7 int16
	P8 int16
	P9 int16

	H1 uint8
	H2 int16
	H3 uint8
	H4 int16
	H5 int16
	H6 int8
}

// Validate reports whether the constants can drive the compensation formulas.
// A zero dig_T1 or dig_P1 means the block was never read (or read as zeros).
func (c *Calibration) Validate() error {
	if c == nil {
		return &errcode.E{C: errcode.Calibration, Op: "bme280.compensate", Msg: "calibration not loaded"}
	}
	if c.T1 == 0 {
		return &errcode.E{C: errcode.Calibration, Op: "bme280.compensate", Msg: "dig_T1 is zero"}
	}
	if c.P1 == 0 {
		return &errcode.E{C: errcode.Calibration, Op: "bme280.compensate", Msg: "dig_P1 is zero"}
	}
	return nil
}

// parseCalibration decodes the two NVM blocks: 0x88..0x9F (tp), 0xA1 (h1) and
// 0xE1..0xE7 (h). dig_H4/dig_H5 share the nibbles of 0xE5.
func parseCalibration(tp [24]byte, h1 byte, h [7]byte) Calibration {
	le := binary.LittleEndian
	return Calibration{
		T1: le.Uint16(tp[0:]),
		T2: int16(le.Uint16(tp[2:])),
		T3: int16(le.Uint16(tp[4:])),
		P1: le.Uint16(tp[6:]),
		P2: int16(le.Uint16(tp[8:])),
		P3: int16(le.Uint16(tp[10:])),
		P4: int16(le.Uint16(tp[12:])),
		P5: int16(le.Uint16(tp[14:])),
		P6: int16(le.Uint16(tp[16:])),
		P7: int16(le.Uint16(tp[18:])),
		P8: int16(le.Uint16(tp[20:])),
		P9: int16(le.Uint16(tp[22:])),

		H1: h1,
		H2: int16(le.Uint16(h[0:])),
		H3: h[2],
		H4: int16(int8(h[3]))*16 | int16(h[4]&0x0F),
		H5: int16(int8(h[5]))*16 | int16(h[4]>>4),
		H6: int8(h[6]),
	}
}

// Compensate converts a raw sample into physical units using cal.
//
// Temperature is compensated first; its fine value feeds both the pressure
// and the humidity formulas, so the three channels are not independent.
func Compensate(raw RawSample, cal *Calibration) (Reading, error) {
	if err := cal.Validate(); err != nil {
		return Reading{}, err
	}
	t, tFine := CompensateTemperature(raw.Temperature, cal)
	p, err := CompensatePressure(raw.Pressure, tFine, cal)
	if err != nil {
		return Reading{}, err
	}
	h := CompensateHumidity(raw.Humidity, tFine, cal)
	return Reading{TemperatureC: t, PressureHPa: p, HumidityPct: h}, nil
}

// CompensateTemperature returns °C and the fine temperature t_fine.
func CompensateTemperature(adcT int32, cal *Calibration) (float64, int32) {
	var1 := (float64(adcT)/16384.0 - float64(cal.T1)/1024.0) * float64(cal.T2)
	var2 := float64(adcT)/131072.0 - float64(cal.T1)/8192.0
	var2 = var2 * var2 * float64(cal.T3)
	tFine := int32(var1 + var2)
	t := (var1 + var2) / 5120.0
	return mathx.Clamp(t, minTemperatureC, maxTemperatureC), tFine
}

// CompensatePressure returns hPa for adcP at fine temperature tFine.
func CompensatePressure(adcP, tFine int32, cal *Calibration) (float64, error) {
	var1 := float64(tFine)/2.0 - 64000.0
	var2 := var1 * var1 * float64(cal.P6) / 32768.0
	var2 = var2 + var1*float64(cal.P5)*2.0
	var2 = var2/4.0 + float64(cal.P4)*65536.0
	var3 := float64(cal.P3) * var1 * var1 / 524288.0
	var1 = (var3 + float64(cal.P2)*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * float64(cal.P1)
	if var1 <= 0 {
		return 0, &errcode.E{C: errcode.Calibration, Op: "bme280.compensate", Msg: "pressure denominator not positive"}
	}
	p := 1048576.0 - float64(adcP)
	p = (p - var2/4096.0) * 6250.0 / var1
	var1 = float64(cal.P9) * p * p / 2147483648.0
	var2 = p * float64(cal.P8) / 32768.0
	p = p + (var1+var2+float64(cal.P7))/16.0
	return mathx.Clamp(p/100.0, minPressureHPa, maxPressureHPa), nil
}

// CompensateHumidity returns %RH for adcH at fine temperature tFine.
func CompensateHumidity(adcH, tFine int32, cal *Calibration) float64 {
	var1 := float64(tFine) - 76800.0
	var2 := float64(cal.H4)*64.0 + float64(cal.H5)/16384.0*var1
	var3 := float64(adcH) - var2
	var4 := float64(cal.H2) / 65536.0
	var5 := 1.0 + float64(cal.H3)/67108864.0*var1
	var6 := 1.0 + float64(cal.H6)/67108864.0*var1*var5
	var6 = var3 * var4 * (var5 * var6)
	h := var6 * (1.0 - float64(cal.H1)*var6/524288.0)
	return mathx.Clamp(h, minHumidityPct, maxHumidityPct)
}
