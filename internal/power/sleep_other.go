//go:build !linux

package power

import (
	"context"
	"errors"
	"time"
)

// DefaultWakeAlarm is unused off Linux.
const DefaultWakeAlarm = ""

// RTCSleeper only supports light sleep on non-Linux platforms.
type RTCSleeper struct{}

// NewRTCSleeper returns a sleeper without deep sleep support.
func NewRTCSleeper(string) *RTCSleeper { return &RTCSleeper{} }

// LightSleep blocks for d.
func (s *RTCSleeper) LightSleep(ctx context.Context, d time.Duration) error {
	return LightSleep(ctx, d)
}

// DeepSleep is not supported.
func (s *RTCSleeper) DeepSleep(time.Duration) error {
	return errors.New("power: deep sleep requires Linux")
}

// Reboot is not supported.
func Reboot() error {
	return errors.New("power: reboot requires Linux")
}
