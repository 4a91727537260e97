package mqtt

import (
	"sync"

	"github.com/sweeney/epaper-display/internal/sensor"
)

// FakePublisher records published events for test assertions. It is safe for
// use from the key and main tasks at once.
type FakePublisher struct {
	mu sync.Mutex

	// Keys contains all key gestures that were published.
	Keys []KeyEvent

	// Sensors contains all sensor snapshots that were published.
	Sensors []sensor.Snapshot

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// Payloads maps each topic to the JSON payloads published on it.
	Payloads map[string][][]byte

	// PublishError, if set, will be returned by every Publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// Backlog controls the return value of Buffered.
	Backlog int
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Payloads: make(map[string][][]byte)}
}

// PublishKey records the key gesture.
func (f *FakePublisher) PublishKey(event KeyEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatKeyPayload(event)
	if err != nil {
		return err
	}
	f.Keys = append(f.Keys, event)
	f.Payloads[TopicKeys] = append(f.Payloads[TopicKeys], payload)
	return nil
}

// PublishSensors records the snapshot.
func (f *FakePublisher) PublishSensors(snap sensor.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatSensorPayload(snap)
	if err != nil {
		return err
	}
	f.Sensors = append(f.Sensors, snap)
	f.Payloads[TopicSensors] = append(f.Payloads[TopicSensors], payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Payloads[TopicSystem] = append(f.Payloads[TopicSystem], payload)
	return nil
}

// SystemNames returns the Event field of every recorded system event.
func (f *FakePublisher) SystemNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		out[i] = e.Event
	}
	return out
}

// KeyCount returns the number of recorded key gestures.
func (f *FakePublisher) KeyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Keys)
}

// SensorCount returns the number of recorded snapshots.
func (f *FakePublisher) SensorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sensors)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Buffered returns Backlog.
func (f *FakePublisher) Buffered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Backlog
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Keys = nil
	f.Sensors = nil
	f.SystemEvents = nil
	f.Payloads = make(map[string][][]byte)
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
