//go:build linux

package network

import (
	"time"

	"golang.org/x/sys/unix"
)

// SetSystemClock sets the kernel wall clock. It needs CAP_SYS_TIME.
func SetSystemClock(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	return unix.Settimeofday(&tv)
}
