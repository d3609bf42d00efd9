package bme280

// I2C addresses (SDO low / high).
const (
	Address    = 0x76
	AddressAlt = 0x77
)

// Register sub-addresses and fixed values, per the Bosch datasheet.
const (
	regCalib00   = 0x88 // dig_T1 .. dig_P9, 24 bytes
	regCalibH1   = 0xA1 // dig_H1, 1 byte
	regCalib26   = 0xE1 // dig_H2 .. dig_H6, 7 bytes
	regChipID    = 0xD0
	regReset     = 0xE0
	regCtrlHum   = 0xF2
	regStatus    = 0xF3
	regCtrlMeas  = 0xF4
	regConfig    = 0xF5
	regPressMSB  = 0xF7 // burst: press[3] temp[3] hum[2]
	dataBurstLen = 8

	ChipID       = 0x60
	resetCommand = 0xB6

	statusMeasuring = 0x08
	statusImUpdate  = 0x01
)

// Oversampling selects samples per channel (ctrl_hum / ctrl_meas fields).
type Oversampling byte

const (
	SamplingOff Oversampling = iota
	Sampling1X
	Sampling2X
	Sampling4X
	Sampling8X
	Sampling16X
)

// Mode is the power mode in ctrl_meas[1:0].
type Mode byte

const (
	ModeSleep  Mode = 0x00
	ModeForced Mode = 0x01
	ModeNormal Mode = 0x03
)

// Filter is the IIR coefficient in config[4:2].
type Filter byte

const (
	FilterOff Filter = iota
	Filter2
	Filter4
	Filter8
	Filter16
)

// Standby is t_sb in config[7:5], normal mode only.
type Standby byte

const (
	Standby0_5ms Standby = iota
	Standby62_5ms
	Standby125ms
	Standby250ms
	Standby500ms
	Standby1000ms
	Standby10ms
	Standby20ms
)

// Output limits of the vendor double-precision compensation.
const (
	minTemperatureC = -40.0
	maxTemperatureC = 85.0
	minPressureHPa  = 300.0
	maxPressureHPa  = 1100.0
	minHumidityPct  = 0.0
	maxHumidityPct  = 100.0
)
