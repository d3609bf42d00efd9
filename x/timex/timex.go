package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// SinceMs returns the milliseconds elapsed since the Unix-ms timestamp ts,
// or -1 when ts is unset.
func SinceMs(ts int64) int64 {
	if ts <= 0 {
		return -1
	}
	return NowMs() - ts
}
