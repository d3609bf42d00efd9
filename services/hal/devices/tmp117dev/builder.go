// services/hal/devices/tmp117dev/builder.go
package tmp117dev

import (
	"context"

	"envhttpd/drivers/tmp117"
	"envhttpd/errcode"
	"envhttpd/services/hal/internal/core"
	"envhttpd/services/hal/internal/util"
	"envhttpd/types"
	"envhttpd/x/mathx"

	"tinygo.org/x/drivers"
)

func init() { core.RegisterBuilder("tmp117", builder{}) }

var (
	modes = map[string]tmp117.Mode{
		"continuous": tmp117.ModeContinuous,
		"oneshot":    tmp117.ModeOneShot,
	}
	averaging = map[string]tmp117.Averaging{
		"0": tmp117.AverageNone, "1": tmp117.AverageNone,
		"8": tmp117.Average8, "32": tmp117.Average32, "64": tmp117.Average64,
	}
)

type builder struct{}

// Build reads params:
//
//	mode         "continuous" (default) | "oneshot"
//	averaging    0 (default), 8, 32, 64
//	cycle        CONV[2:0], 0..7
//	conv_timeout duration, one-shot only
func (builder) Build(_ context.Context, in core.BuilderInput) (core.Device, error) {
	if in.Bus == nil {
		return nil, errcode.UnknownBus
	}
	p := util.Params(in.Params)

	cfg := tmp117.Config{Address: in.Addr}
	if cfg.Address == 0 {
		cfg.Address = tmp117.Address
	}
	var err error
	if cfg.Mode, err = util.Choice(p, "mode", tmp117.ModeContinuous, modes); err != nil {
		return nil, err
	}
	if cfg.Averaging, err = util.Choice(p, "averaging", tmp117.AverageNone, averaging); err != nil {
		return nil, err
	}
	cycle, err := p.Int("cycle", 0)
	if err != nil {
		return nil, err
	}
	cfg.Cycle = uint8(mathx.Clamp(cycle, 0, 7))
	if cfg.ConvTimeout, err = p.Duration("conv_timeout", 0); err != nil {
		return nil, err
	}

	return &Device{
		id:  in.ID,
		bus: in.BusName,
		cfg: cfg,
		drv: tmp117.New(in.Bus),
	}, nil
}

// Device adapts the TMP117 driver to the station.
type Device struct {
	id  string
	bus string
	cfg tmp117.Config
	drv tmp117.Device
}

var _ core.PrecisionSource = (*Device)(nil)

func (d *Device) ID() string { return d.id }

func (d *Device) Info() types.SensorInfo {
	return types.SensorInfo{
		ID:     d.id,
		Sensor: "tmp117",
		Addr:   d.cfg.Address,
		Bus:    d.bus,
		Kinds:  []types.Kind{types.KindTemperature},
	}
}

func (d *Device) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errcode.New(errcode.Timeout, "tmp117.init", err)
	}
	return d.drv.Configure(d.cfg)
}

func (d *Device) Close() error { return nil }

func (d *Device) ReadPrecision(ctx context.Context) (types.PrecisionReading, error) {
	if err := ctx.Err(); err != nil {
		return types.PrecisionReading{}, errcode.New(errcode.Timeout, "tmp117.read", err)
	}
	if err := d.drv.Update(drivers.Temperature); err != nil {
		return types.PrecisionReading{}, err
	}
	raw, r := d.drv.Last()
	return types.PrecisionReading{Raw: int16(raw), TemperatureC: r.TemperatureC}, nil
}
