package network

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// DefaultNTPServer is queried when the clock looks unset.
const DefaultNTPServer = "pool.ntp.org"

// ClockSetter sets the system wall clock.
type ClockSetter func(time.Time) error

// NTP queries a server and corrects the system clock.
type NTP struct {
	Server string
	set    ClockSetter
	query  func(host string, opt ntp.QueryOptions) (*ntp.Response, error)
	now    func() time.Time
}

// NewNTP returns an NTP syncer that sets the clock with set.
func NewNTP(server string, set ClockSetter) *NTP {
	if server == "" {
		server = DefaultNTPServer
	}
	return &NTP{Server: server, set: set, query: ntp.QueryWithOptions, now: time.Now}
}

// Sync queries the server within timeout and applies the offset. It returns
// the corrected time.
func (n *NTP) Sync(timeout time.Duration) (time.Time, error) {
	resp, err := n.query(n.Server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return time.Time{}, fmt.Errorf("ntp query %s: %w", n.Server, err)
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, fmt.Errorf("ntp response from %s: %w", n.Server, err)
	}
	t := n.now().Add(resp.ClockOffset)
	if err := n.set(t); err != nil {
		return time.Time{}, fmt.Errorf("set clock: %w", err)
	}
	return t, nil
}
