// services/hal/internal/util/params.go
package util

import (
	"time"

	"envhttpd/errcode"

	"github.com/spf13/cast"
)

// Params reads typed values out of a device's free-form params map, as
// decoded from JSON or the environment.
type Params map[string]any

// Int returns key as an int, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def, paramErr(key, err)
	}
	return n, nil
}

// String returns key as a string, or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def, paramErr(key, err)
	}
	return s, nil
}

// Duration accepts "250ms" style strings or integer nanoseconds.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def, paramErr(key, err)
	}
	return d, nil
}

// Choice maps a string param onto one of the allowed values.
func Choice[T any](p Params, key string, def T, allowed map[string]T) (T, error) {
	s, err := p.String(key, "")
	if err != nil || s == "" {
		return def, err
	}
	v, ok := allowed[s]
	if !ok {
		return def, &errcode.E{C: errcode.InvalidParams, Op: "hal.params", Msg: key + ": unsupported value " + s}
	}
	return v, nil
}

func paramErr(key string, err error) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "hal.params", Msg: key, Err: err}
}
