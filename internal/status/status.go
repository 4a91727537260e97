// Package status provides a thread-safe view of the display daemon's state.
// It is read by the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// NetworkInfo contains the station link. This is a local copy so that status
// does not depend on the network package.
type NetworkInfo struct {
	SSID    string
	IP      string
	Netmask string
	Gateway string
	DNS     string
}

// Config contains daemon configuration for display.
type Config struct {
	Firmware string
	Broker   string
	HTTPAddr string
	Panel    string
	DataRoot string
}

// KeyInfo is the most recent gesture.
type KeyInfo struct {
	Index  int
	Click  string
	Action string
	Time   time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Page          page.ActivePage
	Sensors       sensor.Snapshot
	HaveSensors   bool
	BootTimes     uint32
	LoopTimes     uint64
	OTA           string
	MQTTConnected bool
	MQTTBuffered  int
	Network       *NetworkInfo
	LastKey       *KeyInfo
	StartTime     time.Time
	Now           time.Time
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Page:      page.None,
			OTA:       "IDLE",
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetPage records the page on the panel.
func (t *Tracker) SetPage(p page.ActivePage) {
	t.mu.Lock()
	t.snap.Page = p
	t.mu.Unlock()
}

// SetSensors records the latest reading.
func (t *Tracker) SetSensors(s sensor.Snapshot) {
	t.mu.Lock()
	t.snap.Sensors = s
	t.snap.HaveSensors = true
	t.mu.Unlock()
}

// SetCycle records the boot counter and the main loop iteration.
func (t *Tracker) SetCycle(bootTimes uint32, loopTimes uint64) {
	t.mu.Lock()
	t.snap.BootTimes = bootTimes
	t.snap.LoopTimes = loopTimes
	t.mu.Unlock()
}

// SetOTA records the updater state name.
func (t *Tracker) SetOTA(state string) {
	t.mu.Lock()
	t.snap.OTA = state
	t.mu.Unlock()
}

// SetMQTT sets the MQTT connection status and how many messages wait for
// the broker.
func (t *Tracker) SetMQTT(connected bool, buffered int) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.snap.MQTTBuffered = buffered
	t.mu.Unlock()
}

// SetNetwork sets the network info. nil means offline.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetLastKey records a gesture.
func (t *Tracker) SetLastKey(k KeyInfo) {
	t.mu.Lock()
	t.snap.LastKey = &k
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	if s.LastKey != nil {
		k := *s.LastKey
		s.LastKey = &k
	}
	s.Now = time.Now()
	return s
}
