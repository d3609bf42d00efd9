package types

import "periph.io/x/conn/v3/physic"

// ------------------------
// Sensor identity
// ------------------------

type Kind string

const (
	KindTemperature Kind = "temperature"
	KindPressure    Kind = "pressure"
	KindHumidity    Kind = "humidity"
)

// SensorInfo describes one configured sensor.
type SensorInfo struct {
	ID     string `json:"id"`
	Sensor string `json:"sensor"` // "bme280", "tmp117"
	Addr   uint16 `json:"addr"`   // I2C address
	Bus    string `json:"bus"`    // "i2c1", "sim0", ...
	Kinds  []Kind `json:"kinds"`
}

// ------------------------
// Readings
// ------------------------

// CombinedRaw is an uncompensated BME280 burst in ADC counts.
type CombinedRaw struct {
	Temperature int32 `json:"temperature"`
	Pressure    int32 `json:"pressure"`
	Humidity    int32 `json:"humidity"`
}

// CombinedValue is a compensated BME280 reading.
type CombinedValue struct {
	TemperatureC float64 `json:"temperature_c"`
	PressureHPa  float64 `json:"pressure_hpa"`
	HumidityPct  float64 `json:"humidity_pct"`
}

type CombinedReading struct {
	Raw   CombinedRaw   `json:"raw"`
	Value CombinedValue `json:"value"`
}

// PrecisionReading is a TMP117 result register and its conversion.
type PrecisionReading struct {
	Raw          int16   `json:"raw"`
	TemperatureC float64 `json:"temperature_c"`
}

// Snapshot is one complete poll of both sensors. It only exists when every
// read and conversion succeeded.
type Snapshot struct {
	Combined  CombinedReading  `json:"bme280"`
	Precision PrecisionReading `json:"tmp117"`
	TS        int64            `json:"ts_ms"`
}

// Env returns the combined reading in periph units.
func (v CombinedValue) Env() physic.Env {
	return physic.Env{
		Temperature: celsius(v.TemperatureC),
		Pressure:    physic.Pressure(v.PressureHPa * 100 * float64(physic.Pascal)),
		Humidity:    physic.RelativeHumidity(v.HumidityPct * float64(physic.PercentRH)),
	}
}

// Temperature returns the precision reading in periph units.
func (p PrecisionReading) Temperature() physic.Temperature {
	return celsius(p.TemperatureC)
}

func celsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}
