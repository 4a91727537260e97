//go:build linux

package power

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultWakeAlarm is the RTC alarm attribute on a Raspberry Pi with an
// RTC fitted.
const DefaultWakeAlarm = "/sys/class/rtc/rtc0/wakealarm"

// RTCSleeper implements deep sleep with an RTC wake alarm followed by a
// power-off.
type RTCSleeper struct {
	WakeAlarm string
	now       func() time.Time
	poweroff  func() error
}

// NewRTCSleeper returns a sleeper using the given wakealarm attribute.
func NewRTCSleeper(wakeAlarm string) *RTCSleeper {
	if wakeAlarm == "" {
		wakeAlarm = DefaultWakeAlarm
	}
	return &RTCSleeper{
		WakeAlarm: wakeAlarm,
		now:       time.Now,
		poweroff: func() error {
			unix.Sync()
			return unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF)
		},
	}
}

// LightSleep blocks for d.
func (s *RTCSleeper) LightSleep(ctx context.Context, d time.Duration) error {
	return LightSleep(ctx, d)
}

// DeepSleep arms the RTC alarm and powers off.
func (s *RTCSleeper) DeepSleep(d time.Duration) error {
	wake := s.now().Add(d).Unix()
	// Writing 0 clears any previous alarm; the kernel rejects a new alarm
	// while one is pending.
	if err := os.WriteFile(s.WakeAlarm, []byte("0"), 0o644); err != nil {
		return fmt.Errorf("clear wake alarm: %w", err)
	}
	if err := os.WriteFile(s.WakeAlarm, []byte(strconv.FormatInt(wake, 10)), 0o644); err != nil {
		return fmt.Errorf("set wake alarm: %w", err)
	}
	if err := s.poweroff(); err != nil {
		return fmt.Errorf("power off: %w", err)
	}
	return nil
}

// Reboot flushes filesystems and restarts the board.
func Reboot() error {
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
