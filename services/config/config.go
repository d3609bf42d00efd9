package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"envhttpd/bus"
	"envhttpd/types"
)

const (
	configPrefix = "config"
	envPrefix    = "ENVHTTPD"

	// DefaultBoard is used when neither flag, environment nor file names one.
	DefaultBoard = "sim"
)

// EmbeddedConfigLookup allows overriding how board defaults are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Boards lists the embedded board names.
func Boards() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	return out
}

// Load assembles the configuration in increasing precedence: embedded board
// defaults, file (optional), ENVHTTPD_* environment, flags already bound to v.
func Load(v *viper.Viper, file string) (types.Config, error) {
	var cfg types.Config

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("json")

	board := v.GetString("board")
	if board == "" {
		board = DefaultBoard
	}
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return cfg, errors.New("no embedded config for board: " + board)
	}
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return cfg, fmt.Errorf("embedded config %q: %w", board, err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", file, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields the server cannot start without.
func Validate(cfg types.Config) error {
	if cfg.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if cfg.Server.MaxOpenSockets < 0 {
		return errors.New("server.max_open_sockets must not be negative")
	}
	if len(cfg.HAL.Devices) == 0 {
		return errors.New("hal.devices is empty")
	}
	seen := map[string]bool{}
	for _, d := range cfg.HAL.Devices {
		if d.ID == "" || d.Type == "" {
			return errors.New("hal.devices: id and type are required")
		}
		if seen[d.ID] {
			return errors.New("hal.devices: duplicate id " + d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// Publish places each config section on the bus as a retained message
// under config/<section>.
func Publish(conn *bus.Connection, cfg types.Config) {
	sections := map[string]any{
		"server":    cfg.Server,
		"admin":     cfg.Admin,
		"hal":       cfg.HAL,
		"heartbeat": cfg.Heartbeat,
	}
	for k, v := range sections {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
}
