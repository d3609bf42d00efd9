// Package tmp117 provides a driver for the TI TMP117 high-accuracy digital
// temperature sensor.
//
// The result register is a signed 16-bit count of 1/128 °C; no per-device
// calibration is involved in the conversion.
package tmp117

import (
	"math"
	"time"

	"envhttpd/errcode"

	"tinygo.org/x/drivers"
)

// RawSample is the uncompensated temperature result register.
type RawSample int16

// Reading is a converted measurement.
type Reading struct {
	TemperatureC float64
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x48 if zero.
	Address uint16
	// Mode defaults to continuous conversion.
	Mode Mode
	// Averaging applied by the device per result.
	Averaging Averaging
	// Cycle is CONV[2:0], the standby time between continuous conversions.
	Cycle uint8
	// PollInterval is used between Data_Ready checks in one-shot mode.
	// Default 5 ms.
	PollInterval time.Duration
	// ConvTimeout bounds the one-shot wait. Default: conversion time + 50 ms.
	ConvTimeout time.Duration
}

// Device wraps an I2C connection to a TMP117.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	w   [3]byte
	r   [2]byte

	lastRaw RawSample
	last    Reading
}

// New creates a new TMP117 connection. The I2C bus must already be configured.
// This function only creates the Device object; it does not touch the device.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
		cfg:     Config{Address: Address, PollInterval: 5 * time.Millisecond},
	}
}

// Configure verifies the device id and writes the configuration register.
func (d *Device) Configure(cfgs ...Config) error {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address == 0 {
		c.Address = Address
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	if c.ConvTimeout <= 0 {
		c.ConvTimeout = time.Duration(oneShotTime[c.Averaging&0x3])*time.Millisecond + 50*time.Millisecond
	}
	d.cfg = c
	d.Address = c.Address

	id, err := d.readWord(regDeviceID)
	if err != nil {
		return errcode.New(errcode.IO, "tmp117.configure", err)
	}
	if id&deviceIDMask != DeviceID {
		return &errcode.E{C: errcode.WrongDevice, Op: "tmp117.configure", Msg: "unexpected device id"}
	}

	mod := c.Mode
	if mod == ModeOneShot {
		// Park in shutdown between one-shot reads.
		mod = ModeShutdown
	}
	if err := d.writeWord(regConfig, d.configWord(mod)); err != nil {
		return errcode.New(errcode.IO, "tmp117.configure", err)
	}
	return nil
}

// Connected reads the device id register and checks it.
func (d *Device) Connected() bool {
	id, err := d.readWord(regDeviceID)
	return err == nil && id&deviceIDMask == DeviceID
}

// ReadRaw reads the temperature result register. In one-shot mode a
// conversion is started and Data_Ready awaited first.
func (d *Device) ReadRaw() (RawSample, error) {
	if d.cfg.Mode == ModeOneShot {
		if err := d.oneShot(); err != nil {
			return 0, err
		}
	}
	v, err := d.readWord(regTempResult)
	if err != nil {
		return 0, errcode.New(errcode.IO, "tmp117.read", err)
	}
	return RawSample(int16(v)), nil
}

// Read performs ReadRaw followed by Compensate.
func (d *Device) Read() (RawSample, Reading, error) {
	raw, err := d.ReadRaw()
	if err != nil {
		return 0, Reading{}, err
	}
	r, err := Compensate(raw)
	if err != nil {
		return raw, Reading{}, err
	}
	return raw, r, nil
}

var _ drivers.Sensor = (*Device)(nil)

// Update implements drivers.Sensor for drivers.Temperature.
func (d *Device) Update(which drivers.Measurement) error {
	if which&drivers.Temperature == 0 {
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

// Compensate scales raw counts to °C: raw × 1/128.
func Compensate(raw RawSample) (Reading, error) {
	t := float64(raw) * Resolution
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return Reading{}, &errcode.E{C: errcode.Conversion, Op: "tmp117.compensate", Msg: "non-finite result"}
	}
	return Reading{TemperatureC: t}, nil
}

func (d *Device) configWord(mod Mode) uint16 {
	return uint16(mod)<<cfgModShift&cfgModMask |
		uint16(d.cfg.Cycle)<<cfgConvShift&cfgConvMask |
		uint16(d.cfg.Averaging)<<cfgAvgShift&cfgAvgMask
}

func (d *Device) oneShot() error {
	if err := d.writeWord(regConfig, d.configWord(ModeOneShot)); err != nil {
		return errcode.New(errcode.IO, "tmp117.read", err)
	}
	deadline := time.Now().Add(d.cfg.ConvTimeout)
	for {
		cfg, err := d.readWord(regConfig)
		if err != nil {
			return errcode.New(errcode.IO, "tmp117.read", err)
		}
		if cfg&cfgDataReady != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return errcode.New(errcode.Timeout, "tmp117.read", nil)
		}
		time.Sleep(d.cfg.PollInterval)
	}
}

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	return d.bus.Tx(d.Address, d.w[:3], nil)
}
