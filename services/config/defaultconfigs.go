package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board name (--board / ENVHTTPD_BOARD)
// Val: raw JSON for that board. A config file and the environment are
// layered on top.
// -----------------------------------------------------------------------------

// Simulated bus seeded with datasheet register contents; runs anywhere.
const cfgSim = `{
  "board": "sim",
  "server": {
    "listen": ":8080",
    "max_open_sockets": 3,
    "recv_timeout": "5s",
    "send_timeout": "5s"
  },
  "admin": {
    "listen": ""
  },
  "log": {
    "level": "info",
    "format": "text"
  },
  "hal": {
    "devices": [
      {"id": "bme280", "type": "bme280", "addr": 118, "bus_ref": {"type": "sim", "id": "sim0"}},
      {"id": "tmp117", "type": "tmp117", "addr": 72, "bus_ref": {"type": "sim", "id": "sim0"}}
    ]
  },
  "heartbeat": {
    "interval": "30s"
  }
}`

// Raspberry Pi: both sensors on /dev/i2c-1 (header pins 3/5).
const cfgRPi = `{
  "board": "rpi",
  "server": {
    "listen": ":80",
    "max_open_sockets": 3,
    "recv_timeout": "5s",
    "send_timeout": "5s"
  },
  "admin": {
    "listen": "127.0.0.1:9100"
  },
  "log": {
    "level": "info",
    "format": "json"
  },
  "hal": {
    "devices": [
      {"id": "bme280", "type": "bme280", "addr": 118, "bus_ref": {"type": "periph", "id": "/dev/i2c-1"},
       "params": {"mode": "forced", "oversampling": 1}},
      {"id": "tmp117", "type": "tmp117", "addr": 72, "bus_ref": {"type": "periph", "id": "/dev/i2c-1"},
       "params": {"averaging": 8}}
    ]
  },
  "heartbeat": {
    "interval": "60s"
  }
}`

var embeddedConfigs = map[string][]byte{
	"sim": []byte(cfgSim),
	"rpi": []byte(cfgRPi),
}
