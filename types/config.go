package types

import "time"

// Config is the full service configuration, assembled from the embedded
// board defaults, an optional file, ENVHTTPD_* variables and flags.
type Config struct {
	Board     string          `mapstructure:"board" json:"board"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Admin     AdminConfig     `mapstructure:"admin" json:"admin"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
	HAL       HALConfig       `mapstructure:"hal" json:"hal"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat" json:"heartbeat"`
}

// ServerConfig bounds the public listener.
type ServerConfig struct {
	Listen         string        `mapstructure:"listen" json:"listen"`
	MaxOpenSockets int           `mapstructure:"max_open_sockets" json:"max_open_sockets"`
	RecvTimeout    time.Duration `mapstructure:"recv_timeout" json:"recv_timeout"`
	SendTimeout    time.Duration `mapstructure:"send_timeout" json:"send_timeout"`
}

// AdminConfig is the metrics/health listener. Empty Listen disables it.
type AdminConfig struct {
	Listen string `mapstructure:"listen" json:"listen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" json:"format"` // text, json
}

// HALConfig lists the devices the station builds, in poll order.
type HALConfig struct {
	Devices []Device `mapstructure:"devices" json:"devices"`
}

// Device describes one sensor to be managed by the station.
type Device struct {
	ID     string         `mapstructure:"id" json:"id"`
	Type   string         `mapstructure:"type" json:"type"` // "bme280", "tmp117"
	Addr   uint16         `mapstructure:"addr" json:"addr,omitempty"`
	Params map[string]any `mapstructure:"params" json:"params,omitempty"`
	BusRef BusRef         `mapstructure:"bus_ref" json:"bus_ref"`
}

// BusRef identifies a bus. Type is "periph" (Linux I2C via periph.io) or
// "sim" (in-process register model); ID is the bus name, e.g. "/dev/i2c-1".
type BusRef struct {
	Type string `mapstructure:"type" json:"type"`
	ID   string `mapstructure:"id" json:"id"`
}

type HeartbeatConfig struct {
	Interval time.Duration `mapstructure:"interval" json:"interval"`
}
