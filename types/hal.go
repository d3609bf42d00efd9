package types

// HALState is published retained on hal/state.
type HALState struct {
	Level  string `json:"level"`           // "idle", "ready", "degraded", "stopped"
	Status string `json:"status"`          // freeform short code
	Error  string `json:"error,omitempty"` // errcode of the last failure
	TS     int64  `json:"ts_ns"`           // publish Unix ns
}

// PollError is published on env/error when a poll fails.
type PollError struct {
	Sensor string `json:"sensor"` // device id that failed
	Code   string `json:"code"`
	TS     int64  `json:"ts_ns"`
}
