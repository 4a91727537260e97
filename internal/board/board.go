// Package board is the peripheral handle. It owns every piece of hardware:
// the shared parts (sensor bus, battery inputs, WiFi radio) sit behind one
// lock, the rest (buttons, panel, speaker) are handed to their tasks once
// at start-up.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"

	"github.com/sweeney/epaper-display/internal/network"
	"github.com/sweeney/epaper-display/internal/power"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// ErrRadioBusy is returned by WiFiConnect while another join is running.
var ErrRadioBusy = errors.New("board: wifi join already running")

// SensorReader reads the environmental sensors.
type SensorReader interface {
	Read(ctx context.Context) (sensor.Snapshot, error)
}

// BatteryMonitor reads the battery inputs.
type BatteryMonitor interface {
	Level(ctx context.Context) (power.BatteryLevel, error)
	IsCharging() bool
}

// Board guards the shared hardware. The lock is held for a single hardware
// call at a time and never across network I/O or a sleep.
type Board struct {
	sem     chan struct{}
	sensors SensorReader
	battery BatteryMonitor
	wifi    network.WiFi
	log     logr.Logger
	now     func() time.Time

	radioBusy bool
	closers   []io.Closer
}

// New wraps already-open hardware.
func New(sensors SensorReader, battery BatteryMonitor, wifi network.WiFi, log logr.Logger) *Board {
	return &Board{
		sem:     make(chan struct{}, 1),
		sensors: sensors,
		battery: battery,
		wifi:    wifi,
		log:     log,
		now:     time.Now,
	}
}

// acquire takes the lock, giving up when ctx is done.
func (b *Board) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("acquire board: %w", ctx.Err())
	}
}

func (b *Board) release() {
	<-b.sem
}

// ReadAllSensors reads the climate sensors and the battery state. Each
// hardware call takes the lock separately. A battery read failure is logged
// and reported as the lowest band.
func (b *Board) ReadAllSensors(ctx context.Context) (sensor.Snapshot, error) {
	if err := b.acquire(ctx); err != nil {
		return sensor.Snapshot{}, err
	}
	snap, err := b.sensors.Read(ctx)
	b.release()
	if err != nil {
		return sensor.Snapshot{}, err
	}
	snap.Time = b.now()

	level, err := b.BatteryLevel(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return sensor.Snapshot{}, err
		}
		b.log.Error(err, "read battery level")
	}
	snap.Battery = level
	snap.Charging = b.IsCharging()
	return snap, nil
}

// BatteryLevel samples the battery comparators.
func (b *Board) BatteryLevel(ctx context.Context) (power.BatteryLevel, error) {
	if err := b.acquire(ctx); err != nil {
		return power.Level25To0, err
	}
	defer b.release()
	return b.battery.Level(ctx)
}

// IsCharging reports whether external power is present.
func (b *Board) IsCharging() bool {
	b.sem <- struct{}{}
	defer b.release()
	return b.battery.IsCharging()
}

// WiFiConnect joins a network. The lock only covers claiming the radio; the
// join itself runs unlocked so sensor reads continue meanwhile.
func (b *Board) WiFiConnect(ctx context.Context, ssid, password string, timeout time.Duration) (network.IPInfo, error) {
	if err := b.acquire(ctx); err != nil {
		return network.IPInfo{}, err
	}
	if b.radioBusy {
		b.release()
		return network.IPInfo{}, ErrRadioBusy
	}
	b.radioBusy = true
	b.release()

	defer func() {
		b.sem <- struct{}{}
		b.radioBusy = false
		b.release()
	}()

	start := b.now()
	info, err := b.wifi.Connect(ctx, ssid, password, timeout)
	if err != nil {
		return network.IPInfo{}, fmt.Errorf("wifi connect %q: %w", ssid, err)
	}
	b.log.Info("wifi connected", "ssid", ssid, "ip", info.IP, "took", b.now().Sub(start).Round(time.Millisecond))
	return info, nil
}

// Close releases the hardware opened by Open.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
