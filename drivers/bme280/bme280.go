// Package bme280 provides a driver for the Bosch BME280 combined
// temperature/pressure/humidity sensor.
//
// The driver is split in two halves:
//
//	raw, err := d.ReadRaw()                 // one bus burst, ADC counts
//	r, err := bme280.Compensate(raw, cal)   // pure, double precision
//
// d.Read() does both with the calibration read by Configure.
//
// Datasheet: BST-BME280-DS002.
package bme280

import (
	"math"
	"time"

	"envhttpd/errcode"

	"tinygo.org/x/drivers"
)

// RawSample is one burst of uncompensated ADC counts. Temperature and
// pressure are 20-bit, humidity 16-bit.
type RawSample struct {
	Temperature int32
	Pressure    int32
	Humidity    int32
}

// Reading is a compensated measurement.
type Reading struct {
	TemperatureC float64
	PressureHPa  float64
	HumidityPct  float64
}

// Config controls sampling. All fields are optional.
type Config struct {
	// Address defaults to 0x76 if zero.
	Address uint16

	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Mode        Mode
	Filter      Filter
	Standby     Standby

	// PollInterval is used between status reads while a forced conversion
	// runs. Default 2 ms.
	PollInterval time.Duration
	// MeasureTimeout bounds the wait for a forced conversion. Default 100 ms.
	MeasureTimeout time.Duration
}

// DefaultConfig is the datasheet "weather monitoring" profile: forced mode,
// 1x oversampling on every channel, filter off.
func DefaultConfig() Config {
	return Config{
		Address:        Address,
		Temperature:    Sampling1X,
		Pressure:       Sampling1X,
		Humidity:       Sampling1X,
		Mode:           ModeForced,
		Filter:         FilterOff,
		PollInterval:   2 * time.Millisecond,
		MeasureTimeout: 100 * time.Millisecond,
	}
}

// Device wraps an I2C connection to a BME280.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg        Config
	cal        Calibration
	calibrated bool

	w   [2]byte
	buf [dataBurstLen]byte

	lastRaw RawSample
	last    Reading
}

// New creates a new BME280 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
		cfg:     DefaultConfig(),
	}
}

// Configure checks the chip id, soft-resets the device, loads the
// calibration constants and applies cfg (DefaultConfig when omitted).
func (d *Device) Configure(cfgs ...Config) error {
	c := DefaultConfig()
	if len(cfgs) > 0 {
		c = cfgs[0]
		if c.Address == 0 {
			c.Address = Address
		}
		if c.Mode == ModeSleep {
			c.Mode = ModeForced
		}
		if c.PollInterval <= 0 {
			c.PollInterval = 2 * time.Millisecond
		}
		if c.MeasureTimeout <= 0 {
			c.MeasureTimeout = 100 * time.Millisecond
		}
	}
	d.cfg = c
	d.Address = c.Address
	d.calibrated = false

	id, err := d.readReg(regChipID)
	if err != nil {
		return errcode.New(errcode.IO, "bme280.configure", err)
	}
	if id != ChipID {
		return &errcode.E{C: errcode.WrongDevice, Op: "bme280.configure", Msg: "unexpected chip id"}
	}

	if err := d.Reset(); err != nil {
		return err
	}
	// NVM copy runs after reset; wait for im_update to clear.
	if err := d.waitStatusClear(statusImUpdate); err != nil {
		return err
	}

	var tp [24]byte
	var h1 [1]byte
	var h [7]byte
	if err := d.readBlock(regCalib00, tp[:]); err != nil {
		return errcode.New(errcode.IO, "bme280.configure", err)
	}
	if err := d.readBlock(regCalibH1, h1[:]); err != nil {
		return errcode.New(errcode.IO, "bme280.configure", err)
	}
	if err := d.readBlock(regCalib26, h[:]); err != nil {
		return errcode.New(errcode.IO, "bme280.configure", err)
	}
	cal := parseCalibration(tp, h1[0], h)
	if err := cal.Validate(); err != nil {
		return err
	}
	d.cal = cal
	d.calibrated = true

	// config is only writable in sleep mode, which is where reset left us.
	if err := d.writeReg(regConfig, byte(c.Standby)<<5|byte(c.Filter)<<2); err != nil {
		return errcode.New(errcode.IO, "bme280.configure", err)
	}
	// ctrl_hum takes effect on the next ctrl_meas write.
	if err := d.writeReg(regCtrlHum, byte(c.Humidity)); err != nil {
		return errcode.New(errcode.IO, "bme280.configure", err)
	}
	if c.Mode == ModeNormal {
		if err := d.writeReg(regCtrlMeas, d.ctrlMeas()); err != nil {
			return errcode.New(errcode.IO, "bme280.configure", err)
		}
	}
	return nil
}

// Connected does a "who am I" read and checks the response.
func (d *Device) Connected() bool {
	id, err := d.readReg(regChipID)
	return err == nil && id == ChipID
}

// Reset issues a soft reset. Calibration must be reloaded with Configure.
func (d *Device) Reset() error {
	if err := d.writeReg(regReset, resetCommand); err != nil {
		return errcode.New(errcode.IO, "bme280.reset", err)
	}
	time.Sleep(2 * time.Millisecond)
	return nil
}

// Calibration returns the constants loaded by Configure, or nil before a
// successful Configure.
func (d *Device) Calibration() *Calibration {
	if !d.calibrated {
		return nil
	}
	c := d.cal
	return &c
}

// ReadRaw reads one uncompensated sample. In forced mode a conversion is
// started first and awaited.
func (d *Device) ReadRaw() (RawSample, error) {
	if d.cfg.Mode == ModeForced {
		if err := d.writeReg(regCtrlMeas, d.ctrlMeas()); err != nil {
			return RawSample{}, errcode.New(errcode.IO, "bme280.read", err)
		}
		time.Sleep(d.measurementDelay())
		if err := d.waitStatusClear(statusMeasuring); err != nil {
			return RawSample{}, err
		}
	}

	data := d.buf[:]
	if err := d.readBlock(regPressMSB, data); err != nil {
		return RawSample{}, errcode.New(errcode.IO, "bme280.read", err)
	}
	return RawSample{
		Pressure:    int32(data[0])<<12 | int32(data[1])<<4 | int32(data[2])>>4,
		Temperature: int32(data[3])<<12 | int32(data[4])<<4 | int32(data[5])>>4,
		Humidity:    int32(data[6])<<8 | int32(data[7]),
	}, nil
}

// Read performs ReadRaw followed by Compensate with the device calibration.
func (d *Device) Read() (RawSample, Reading, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return RawSample{}, Reading{}, err
	}
	r, err := Compensate(raw, d.Calibration())
	if err != nil {
		return raw, Reading{}, err
	}
	return raw, r, nil
}

var _ drivers.Sensor = (*Device)(nil)

// Update implements drivers.Sensor. Any of Temperature, Pressure or
// Humidity triggers one burst covering all three channels.
func (d *Device) Update(which drivers.Measurement) error {
	if which&(drivers.Temperature|drivers.Pressure|drivers.Humidity) == 0 {
		return nil
	}
	raw, r, err := d.Read()
	if err != nil {
		return err
	}
	d.lastRaw, d.last = raw, r
	return nil
}

// Last returns the sample stored by the last successful Update.
func (d *Device) Last() (RawSample, Reading) { return d.lastRaw, d.last }

// Temperature returns the last temperature in milli-degrees Celsius.
func (d *Device) Temperature() int32 { return int32(math.Round(d.last.TemperatureC * 1000)) }

// Pressure returns the last pressure in milli-pascal.
func (d *Device) Pressure() int32 { return int32(math.Round(d.last.PressureHPa * 100_000)) }

// Humidity returns the last relative humidity in hundredths of a percent.
func (d *Device) Humidity() int32 { return int32(math.Round(d.last.HumidityPct * 100)) }

func (d *Device) ctrlMeas() byte {
	return byte(d.cfg.Temperature)<<5 | byte(d.cfg.Pressure)<<2 | byte(d.cfg.Mode)
}

// waitStatusClear polls the status register until mask clears or the
// measure timeout elapses.
func (d *Device) waitStatusClear(mask byte) error {
	deadline := time.Now().Add(d.cfg.MeasureTimeout)
	for {
		st, err := d.readReg(regStatus)
		if err != nil {
			return errcode.New(errcode.IO, "bme280.status", err)
		}
		if st&mask == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return errcode.New(errcode.Timeout, "bme280.status", nil)
		}
		time.Sleep(d.cfg.PollInterval)
	}
}

// measurementDelay is the datasheet "typical" measurement time (appendix B)
// for the configured oversampling.
func (d *Device) measurementDelay() time.Duration {
	osr := [...]int{0, 1, 2, 4, 8, 16}
	n := func(o Oversampling) int {
		if int(o) < len(osr) {
			return osr[o]
		}
		return 16
	}
	us := 1000 + 2000*n(d.cfg.Temperature)
	if p := n(d.cfg.Pressure); p > 0 {
		us += 2000*p + 500
	}
	if h := n(d.cfg.Humidity); h > 0 {
		us += 2000*h + 500
	}
	return time.Duration(us) * time.Microsecond
}

func (d *Device) readReg(reg byte) (byte, error) {
	var b [1]byte
	if err := d.readBlock(reg, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Device) readBlock(reg byte, r []byte) error {
	d.w[0] = reg
	return d.bus.Tx(d.Address, d.w[:1], r)
}

func (d *Device) writeReg(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	return d.bus.Tx(d.Address, d.w[:2], nil)
}
