// services/hal/internal/platform/sim.go
package platform

import (
	"encoding/binary"
	"errors"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Sim addresses.
const (
	SimBME280Addr = 0x76
	SimTMP117Addr = 0x48
)

// ErrNack is returned for transactions to an address nobody answers.
var ErrNack = errors.New("sim: address not acknowledged")

// SimCalibration holds the BME280 trimming words in datasheet order.
type SimCalibration struct {
	T1         uint16
	T2, T3     int16
	P1         uint16
	P2, P3, P4 int16
	P5, P6, P7 int16
	P8, P9     int16
	H1         uint8
	H2         int16
	H3         uint8
	H4, H5     int16
	H6         int8
}

// DatasheetCalibration is the trimming set of the Bosch reference example.
var DatasheetCalibration = SimCalibration{
	T1: 27504, T2: 26435, T3: -1000,
	P1: 36477, P2: -10685, P3: 3024, P4: 2855, P5: 140, P6: -7, P7: 15500, P8: -14600, P9: 6000,
	H1: 75, H2: 362, H3: 0, H4: 313, H5: 50, H6: 30,
}

// Raw ADC words matching DatasheetCalibration: 25.08 °C, 1006.53 hPa, 46.66 %.
const (
	DatasheetRawT = 519888
	DatasheetRawP = 415148
	DatasheetRawH = 28502

	// 25.078125 °C
	DefaultTMP117Raw int16 = 3210
)

// Sim is an in-process I2C bus carrying a BME280 register file at 0x76 and
// a TMP117 at 0x48.
type Sim struct {
	mu   sync.Mutex
	name string

	bme  [256]byte
	tmp  map[byte]uint16
	tptr byte

	fail map[uint16]error
}

var _ i2c.BusCloser = (*Sim)(nil)

// NewSim returns a bus whose sensors hold the datasheet reference values.
func NewSim(name string) *Sim {
	s := &Sim{
		name: name,
		tmp:  map[byte]uint16{},
		fail: map[uint16]error{},
	}
	s.bme[0xD0] = 0x60
	s.SetCalibration(DatasheetCalibration)
	s.SetCombinedRaw(DatasheetRawT, DatasheetRawP, DatasheetRawH)

	s.tmp[0x01] = 0x0220
	s.tmp[0x0F] = 0x0117
	s.SetPrecisionRaw(DefaultTMP117Raw)
	return s
}

func openSim(id string) (i2c.BusCloser, error) { return NewSim(id), nil }

func (s *Sim) String() string                  { return "sim:" + s.name }
func (s *Sim) SetSpeed(physic.Frequency) error { return nil }
func (s *Sim) Close() error                    { return nil }

// SetCalibration writes the BME280 NVM blocks at 0x88, 0xA1 and 0xE1.
func (s *Sim) SetCalibration(c SimCalibration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	le := binary.LittleEndian
	tp := s.bme[0x88 : 0x88+24]
	words := []uint16{
		c.T1, uint16(c.T2), uint16(c.T3),
		c.P1, uint16(c.P2), uint16(c.P3), uint16(c.P4), uint16(c.P5),
		uint16(c.P6), uint16(c.P7), uint16(c.P8), uint16(c.P9),
	}
	for i, w := range words {
		le.PutUint16(tp[2*i:], w)
	}
	s.bme[0xA1] = c.H1
	le.PutUint16(s.bme[0xE1:], uint16(c.H2))
	s.bme[0xE3] = c.H3
	// H4 and H5 are 12-bit and share the nibbles of 0xE5.
	s.bme[0xE4] = byte(c.H4 >> 4)
	s.bme[0xE5] = byte(c.H5&0x0F)<<4 | byte(c.H4&0x0F)
	s.bme[0xE6] = byte(c.H5 >> 4)
	s.bme[0xE7] = byte(c.H6)
}

// SetCombinedRaw loads the BME280 data registers 0xF7..0xFE.
func (s *Sim) SetCombinedRaw(t, p, h int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	put20 := func(at int, v int32) {
		s.bme[at] = byte(v >> 12)
		s.bme[at+1] = byte(v >> 4)
		s.bme[at+2] = byte(v&0x0F) << 4
	}
	put20(0xF7, p)
	put20(0xFA, t)
	s.bme[0xFD] = byte(h >> 8)
	s.bme[0xFE] = byte(h)
}

// SetPrecisionRaw loads the TMP117 result register.
func (s *Sim) SetPrecisionRaw(raw int16) {
	s.mu.Lock()
	s.tmp[0x00] = uint16(raw)
	s.mu.Unlock()
}

// Fail makes every transaction to addr return err. A nil err clears it.
func (s *Sim) Fail(addr uint16, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, addr)
		return
	}
	s.fail[addr] = err
}

// Tx implements i2c.Bus.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[addr]; err != nil {
		return err
	}
	switch addr {
	case SimBME280Addr:
		return s.txBME280(w, r)
	case SimTMP117Addr:
		return s.txTMP117(w, r)
	}
	return ErrNack
}

// BME280: writes are (reg, value) pairs, reads auto-increment from w[0].
func (s *Sim) txBME280(w, r []byte) error {
	if len(w) == 0 {
		return ErrNack
	}
	if len(r) > 0 {
		copy(r, s.bme[int(w[0]):])
		return nil
	}
	for i := 0; i+1 < len(w); i += 2 {
		reg, val := w[i], w[i+1]
		switch reg {
		case 0xE0, 0xD0:
			// Reset and chip id: NVM contents survive, nothing to latch.
		case 0xF3:
			// status is read-only
		default:
			s.bme[reg] = val
		}
	}
	return nil
}

// TMP117: 16-bit big-endian registers behind a pointer byte.
func (s *Sim) txTMP117(w, r []byte) error {
	if len(w) > 0 {
		s.tptr = w[0]
	}
	if len(w) == 3 {
		v := binary.BigEndian.Uint16(w[1:])
		if s.tptr == 0x01 {
			const modMask, modOneShot, modShutdown, ready = 0x3 << 10, 0x3 << 10, 0x1 << 10, 1 << 13
			if v&modMask == modOneShot {
				// Conversion completes instantly and the part returns to shutdown.
				v = v&^modMask | modShutdown | ready
			}
		}
		if s.tptr != 0x0F {
			s.tmp[s.tptr] = v
		}
	}
	if len(r) >= 2 {
		binary.BigEndian.PutUint16(r, s.tmp[s.tptr])
		if s.tptr == 0x00 {
			s.tmp[0x01] &^= 1 << 13
		}
	}
	return nil
}
