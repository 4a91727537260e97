package sensor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// SHT3xAddr is the SHT3x address with ADDR tied low.
const SHT3xAddr uint16 = 0x44

// Single shot, high repeatability, no clock stretching.
var cmdMeasureHigh = []byte{0x24, 0x00}

const (
	cmdSoftReset0 = 0x30
	cmdSoftReset1 = 0xa2

	// Maximum measurement duration at high repeatability.
	measureDelay = 16 * time.Millisecond
)

// SHT3x is a Sensirion SHT30/31/35 temperature and humidity sensor.
type SHT3x struct {
	mu sync.Mutex
	d  *i2c.Dev

	sleep func(time.Duration)
}

// NewSHT3x returns a driver for the sensor at addr on bus.
func NewSHT3x(bus i2c.Bus, addr uint16) *SHT3x {
	return &SHT3x{d: &i2c.Dev{Bus: bus, Addr: addr}, sleep: time.Sleep}
}

func (s *SHT3x) String() string {
	return fmt.Sprintf("SHT3x{%s}", s.d)
}

// Sense performs one single-shot measurement. Pressure is left untouched.
func (s *SHT3x) Sense(e *physic.Env) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.d.Tx(cmdMeasureHigh, nil); err != nil {
		return fmt.Errorf("sht3x: start measurement: %w", err)
	}
	s.sleep(measureDelay)
	r := make([]byte, 6)
	if err := s.d.Tx(nil, r); err != nil {
		return fmt.Errorf("sht3x: read measurement: %w", err)
	}
	if crc8(r[:2]) != r[2] {
		return errors.New("sht3x: temperature crc mismatch")
	}
	if crc8(r[3:5]) != r[5] {
		return errors.New("sht3x: humidity crc mismatch")
	}
	e.Temperature = countToTemp(uint16(r[0])<<8 | uint16(r[1]))
	e.Humidity = countToHumidity(uint16(r[3])<<8 | uint16(r[4]))
	return nil
}

// Reset issues a soft reset.
func (s *SHT3x) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.d.Tx([]byte{cmdSoftReset0, cmdSoftReset1}, nil); err != nil {
		return fmt.Errorf("sht3x: reset: %w", err)
	}
	s.sleep(2 * time.Millisecond)
	return nil
}

// Halt implements conn.Resource. Single-shot mode has nothing to stop.
func (s *SHT3x) Halt() error {
	return nil
}

// T = -45 + 175 * count / 65535
func countToTemp(count uint16) physic.Temperature {
	c := -45.0 + 175.0*float64(count)/65535.0
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Kelvin))
}

// RH = 100 * count / 65535
func countToHumidity(count uint16) physic.RelativeHumidity {
	return physic.RelativeHumidity(100.0 * float64(count) / 65535.0 * float64(physic.PercentRH))
}

// crc8 is the Sensirion CRC: polynomial 0x31, init 0xff.
func crc8(data []byte) byte {
	crc := byte(0xff)
	for _, v := range data {
		crc ^= v
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

var _ conn.Resource = &SHT3x{}
