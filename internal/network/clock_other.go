//go:build !linux

package network

import (
	"errors"
	"time"
)

// SetSystemClock is only supported on Linux.
func SetSystemClock(time.Time) error {
	return errors.New("network: setting the clock requires Linux")
}
