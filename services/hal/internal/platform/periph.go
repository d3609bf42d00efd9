// services/hal/internal/platform/periph.go
package platform

import (
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// openPeriph opens a Linux I2C adapter through periph.io. id is either a
// device path ("/dev/i2c-1"), a bus number or name ("1", "I2C1") or "" for
// the first bus.
func openPeriph(id string) (i2c.BusCloser, error) {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, hostErr
	}
	return i2creg.Open(strings.TrimPrefix(id, "/dev/i2c-"))
}
