// Package sensor reads the environmental sensors on the I2C bus.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/epaper-display/internal/power"
)

// Sensor is the part of a periph environmental sensor the daemon uses.
type Sensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

// Snapshot is one reading of everything the pages show.
type Snapshot struct {
	Time        time.Time
	Temperature physic.Temperature
	Humidity    physic.RelativeHumidity
	Pressure    physic.Pressure // zero when no barometer is fitted
	Battery     power.BatteryLevel
	Charging    bool
}

// Celsius returns the temperature in °C.
func (s Snapshot) Celsius() float64 {
	return s.Temperature.Celsius()
}

// HumidityPercent returns relative humidity in percent.
func (s Snapshot) HumidityPercent() float64 {
	return float64(s.Humidity) / float64(physic.PercentRH)
}

// HectoPascal returns the pressure in hPa, or 0 if unknown.
func (s Snapshot) HectoPascal() float64 {
	return float64(s.Pressure) / float64(100*physic.Pascal)
}

// Retry bounds for a sensor read.
const (
	DefaultAttempts   = 3
	DefaultRetryDelay = 50 * time.Millisecond
)

// Reader combines a temperature/humidity sensor with an optional barometer.
type Reader struct {
	climate    Sensor
	barometer  Sensor // may be nil
	attempts   int
	retryDelay time.Duration
}

// NewReader creates a Reader. barometer may be nil.
func NewReader(climate, barometer Sensor) *Reader {
	return &Reader{
		climate:    climate,
		barometer:  barometer,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
	}
}

// Read fills the environmental fields of a snapshot, retrying each sensor
// up to the attempt limit. A barometer failure is not fatal: pressure is
// reported as unknown.
func (r *Reader) Read(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var env physic.Env
	if err := r.sense(ctx, r.climate, &env); err != nil {
		return snap, fmt.Errorf("read climate sensor: %w", err)
	}
	snap.Temperature = env.Temperature
	snap.Humidity = env.Humidity

	if r.barometer != nil {
		var b physic.Env
		if err := r.sense(ctx, r.barometer, &b); err == nil {
			snap.Pressure = b.Pressure
		}
	}
	return snap, nil
}

func (r *Reader) sense(ctx context.Context, s Sensor, e *physic.Env) error {
	var err error
	for i := 0; i < r.attempts; i++ {
		if err = s.Sense(e); err == nil {
			return nil
		}
		if i == r.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(r.retryDelay):
		}
	}
	return fmt.Errorf("after %d attempts: %w", r.attempts, err)
}

// Close halts the sensors.
func (r *Reader) Close() error {
	var errs []error
	if err := r.climate.Halt(); err != nil {
		errs = append(errs, err)
	}
	if r.barometer != nil {
		if err := r.barometer.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
