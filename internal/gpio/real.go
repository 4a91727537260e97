//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Bias selects the line bias applied while the bank is held.
type Bias int

const (
	PullUp Bias = iota
	PullDown
)

// RealReader reads a bank of lines from the Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	vals  []int
}

// NewRealReader requests pins as inputs on chipName. With activeLow set a
// low level reads as true, which suits buttons and open-collector outputs
// wired to ground.
func NewRealReader(chipName string, pins []int, bias Bias, activeLow bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, biasOption(bias)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	lines, err := chip.RequestLines(pins, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pins %v: %w", pins, err)
	}

	return &RealReader{
		chip:  chip,
		lines: lines,
		vals:  make([]int, len(pins)),
	}, nil
}

func biasOption(b Bias) gpiocdev.LineReqOption {
	if b == PullDown {
		return gpiocdev.WithPullDown
	}
	return gpiocdev.WithPullUp
}

// Read returns the logical values of the bank.
func (r *RealReader) Read() ([]bool, error) {
	if err := r.lines.Values(r.vals); err != nil {
		return nil, fmt.Errorf("read pins: %w", err)
	}
	out := make([]bool, len(r.vals))
	for i, v := range r.vals {
		out[i] = v == 1
	}
	return out, nil
}

// Close releases GPIO resources.
// Lines are returned to input with pull-down (the Pi boot default) before
// closing so nothing is left driving an external circuit.
func (r *RealReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pins: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
