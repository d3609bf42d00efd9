package core

import (
	"context"

	"envhttpd/types"

	"tinygo.org/x/drivers"
)

// ---- Device model ----

// Device is one configured sensor.
type Device interface {
	ID() string
	Info() types.SensorInfo
	// Init talks to the part for the first time: identity check,
	// calibration load, configuration.
	Init(ctx context.Context) error
	Close() error
}

// CombinedSource produces temperature, pressure and humidity together.
type CombinedSource interface {
	Device
	ReadCombined(ctx context.Context) (types.CombinedReading, error)
}

// PrecisionSource produces a single high-accuracy temperature.
type PrecisionSource interface {
	Device
	ReadPrecision(ctx context.Context) (types.PrecisionReading, error)
}

// ---- Builder input ----

type BuilderInput struct {
	ID, Type string
	Addr     uint16
	Params   map[string]any
	Bus      drivers.I2C
	BusName  string
}

type Builder interface {
	Build(ctx context.Context, in BuilderInput) (Device, error)
}
