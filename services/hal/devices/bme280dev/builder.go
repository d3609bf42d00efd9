// services/hal/devices/bme280dev/builder.go
package bme280dev

import (
	"context"

	"envhttpd/drivers/bme280"
	"envhttpd/errcode"
	"envhttpd/services/hal/internal/core"
	"envhttpd/services/hal/internal/util"
	"envhttpd/types"

	"tinygo.org/x/drivers"
)

func init() { core.RegisterBuilder("bme280", builder{}) }

var (
	modes = map[string]bme280.Mode{
		"forced": bme280.ModeForced,
		"normal": bme280.ModeNormal,
	}
	oversampling = map[string]bme280.Oversampling{
		"1": bme280.Sampling1X, "2": bme280.Sampling2X, "4": bme280.Sampling4X,
		"8": bme280.Sampling8X, "16": bme280.Sampling16X,
	}
	filters = map[string]bme280.Filter{
		"0": bme280.FilterOff, "2": bme280.Filter2, "4": bme280.Filter4,
		"8": bme280.Filter8, "16": bme280.Filter16,
	}
)

type builder struct{}

// Build reads params:
//
//	mode            "forced" (default) | "normal"
//	oversampling    1 (default), 2, 4, 8, 16; all three channels
//	filter          0 (default), 2, 4, 8, 16
//	measure_timeout duration, default 100ms
func (builder) Build(_ context.Context, in core.BuilderInput) (core.Device, error) {
	if in.Bus == nil {
		return nil, errcode.UnknownBus
	}
	p := util.Params(in.Params)

	cfg := bme280.DefaultConfig()
	if in.Addr != 0 {
		cfg.Address = in.Addr
	}
	var err error
	if cfg.Mode, err = util.Choice(p, "mode", cfg.Mode, modes); err != nil {
		return nil, err
	}
	osr, err := util.Choice(p, "oversampling", bme280.Sampling1X, oversampling)
	if err != nil {
		return nil, err
	}
	cfg.Temperature, cfg.Pressure, cfg.Humidity = osr, osr, osr
	if cfg.Filter, err = util.Choice(p, "filter", cfg.Filter, filters); err != nil {
		return nil, err
	}
	if cfg.MeasureTimeout, err = p.Duration("measure_timeout", cfg.MeasureTimeout); err != nil {
		return nil, err
	}

	d := &Device{
		id:  in.ID,
		bus: in.BusName,
		cfg: cfg,
		drv: bme280.New(in.Bus),
	}
	return d, nil
}

// Device adapts the BME280 driver to the station.
type Device struct {
	id  string
	bus string
	cfg bme280.Config
	drv bme280.Device
}

var _ core.CombinedSource = (*Device)(nil)

func (d *Device) ID() string { return d.id }

func (d *Device) Info() types.SensorInfo {
	return types.SensorInfo{
		ID:     d.id,
		Sensor: "bme280",
		Addr:   d.cfg.Address,
		Bus:    d.bus,
		Kinds:  []types.Kind{types.KindTemperature, types.KindPressure, types.KindHumidity},
	}
}

func (d *Device) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errcode.New(errcode.Timeout, "bme280.init", err)
	}
	return d.drv.Configure(d.cfg)
}

func (d *Device) Close() error { return nil }

// ReadCombined takes one forced (or latest normal-mode) sample and
// compensates it with the calibration loaded by Init.
func (d *Device) ReadCombined(ctx context.Context) (types.CombinedReading, error) {
	if err := ctx.Err(); err != nil {
		return types.CombinedReading{}, errcode.New(errcode.Timeout, "bme280.read", err)
	}
	if err := d.drv.Update(drivers.AllMeasurements); err != nil {
		return types.CombinedReading{}, err
	}
	raw, r := d.drv.Last()
	return types.CombinedReading{
		Raw: types.CombinedRaw{
			Temperature: raw.Temperature,
			Pressure:    raw.Pressure,
			Humidity:    raw.Humidity,
		},
		Value: types.CombinedValue{
			TemperatureC: r.TemperatureC,
			PressureHPa:  r.PressureHPa,
			HumidityPct:  r.HumidityPct,
		},
	}, nil
}
