package tmp117

// I2C address with ADD0 tied to GND. 0x49..0x4B for V+, SDA, SCL.
const Address = 0x48

// 16-bit registers, big-endian on the wire.
const (
	regTempResult = 0x00
	regConfig     = 0x01
	regTHighLimit = 0x02
	regTLowLimit  = 0x03
	regTempOffset = 0x07
	regDeviceID   = 0x0F

	DeviceID     = 0x0117
	deviceIDMask = 0x0FFF // bits 15:12 carry the die revision
)

// Configuration register fields.
const (
	cfgDataReady = 1 << 13
	cfgModShift  = 10
	cfgModMask   = 0x3 << cfgModShift
	cfgConvShift = 7
	cfgConvMask  = 0x7 << cfgConvShift
	cfgAvgShift  = 5
	cfgAvgMask   = 0x3 << cfgAvgShift
	cfgSoftReset = 1 << 1
)

// Resolution is the temperature LSB in °C (7.8125 m°C).
const Resolution = 1.0 / 128.0

// Mode is the conversion mode, MOD[1:0].
type Mode uint8

const (
	ModeContinuous Mode = 0x0
	ModeShutdown   Mode = 0x1
	ModeOneShot    Mode = 0x3
)

// Averaging is AVG[1:0]: number of conversions averaged per result.
type Averaging uint8

const (
	AverageNone Averaging = iota
	Average8
	Average32
	Average64
)

// oneShotTime is the conversion time per averaging setting (datasheet
// table 7-7, one-shot column).
var oneShotTime = [...]uint16{16, 125, 500, 1000} // ms
