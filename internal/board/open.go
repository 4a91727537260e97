package board

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/sweeney/epaper-display/internal/audio"
	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/gpio"
	"github.com/sweeney/epaper-display/internal/network"
	"github.com/sweeney/epaper-display/internal/power"
	"github.com/sweeney/epaper-display/internal/screen"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// Hardware is the board plus the devices handed to single tasks.
type Hardware struct {
	*Board
	Buttons gpio.Reader
	Panel   screen.Panel
	Audio   audio.Backend
}

// OpenShared opens the locked part of the board: sensor bus, battery
// inputs and WiFi.
func OpenShared(o config.Options, log logr.Logger) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	var closers []io.Closer
	fail := func(err error) (*Board, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		return nil, err
	}

	bus, err := i2creg.Open(o.I2CBus)
	if err != nil {
		return fail(fmt.Errorf("open i2c %q: %w", o.I2CBus, err))
	}
	closers = append(closers, bus)

	climate := sensor.NewSHT3x(bus, o.SHT3xAddr)
	if err := climate.Reset(); err != nil {
		log.Error(err, "reset climate sensor")
	}
	var barometer sensor.Sensor
	if o.BarometerAddr != 0 {
		d, err := bmxx80.NewI2C(bus, o.BarometerAddr, &bmxx80.DefaultOpts)
		if err != nil {
			log.Error(err, "barometer unavailable", "addr", o.BarometerAddr)
		} else {
			barometer = d
		}
	}
	sensors := sensor.NewReader(climate, barometer)
	closers = append(closers, sensors)

	levels, err := gpio.NewRealReader(o.GPIOChip, o.BatteryPins, gpio.PullUp, true)
	if err != nil {
		return fail(fmt.Errorf("battery pins: %w", err))
	}
	var charge gpio.Reader
	if o.ChargePin >= 0 {
		c, err := gpio.NewRealReader(o.GPIOChip, []int{o.ChargePin}, gpio.PullUp, true)
		if err != nil {
			levels.Close()
			return fail(fmt.Errorf("charge pin: %w", err))
		}
		charge = c
	}
	battery := power.NewBattery(levels, charge, o.BatteryBands)
	closers = append(closers, battery)

	b := New(sensors, battery, network.NewNMWiFi(o.WiFiInterface), log)
	b.closers = closers
	return b, nil
}

// Open opens the whole board.
func Open(o config.Options, log logr.Logger) (*Hardware, error) {
	b, err := OpenShared(o, log)
	if err != nil {
		return nil, err
	}
	hw := &Hardware{Board: b}

	buttons, err := gpio.NewRealReader(o.GPIOChip, o.ButtonPins, gpio.PullUp, true)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("button pins: %w", err), b.Close())
	}
	hw.Buttons = buttons
	b.closers = append(b.closers, buttons)

	switch o.Panel {
	case config.PanelTerminal:
		hw.Panel = screen.NewTerminal(nil)
	default:
		epd, err := screen.OpenWaveshare(o.SPIPort)
		if err != nil {
			return nil, errors.Join(err, b.Close())
		}
		hw.Panel = epd
		b.closers = append(b.closers, epd)
	}

	speaker, err := audio.NewEbiten(o.AudioRate)
	if err != nil {
		log.Error(err, "audio unavailable, running silent")
		hw.Audio = audio.Discard{}
	} else {
		hw.Audio = speaker
	}
	return hw, nil
}
