// Package mqtt publishes key gestures, sensor readings and lifecycle events
// for the display, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/epaper-display/internal/button"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// Topics the display publishes on.
const (
	TopicKeys    = "epaper/display/keys"
	TopicSensors = "epaper/display/sensors"
	TopicSystem  = "epaper/display/system"
)

// ClientID identifies the display to the broker.
const ClientID = "epaper-display"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishKey sends a classified key gesture.
	// Returns error if publishing fails (should not crash the process).
	PublishKey(event KeyEvent) error

	// PublishSensors sends one sensor snapshot.
	PublishSensors(snap sensor.Snapshot) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active and how
// many messages are held until it is.
type ConnectionStatus interface {
	IsConnected() bool
	Buffered() int
}

// KeyEvent is a completed gesture and what the display did about it.
type KeyEvent struct {
	Timestamp time.Time
	Key       button.PressedKeyInfo
	Action    string // e.g. "page:About", "connect", "play", "popup"
}

// SystemEvent represents a system lifecycle event (e.g. startup, sleep, ota).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SLEEP", "OTA", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "DEEP", "REBOOTING"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// KeyPayload is the message published on TopicKeys.
type KeyPayload struct {
	Key KeyPayloadInner `json:"key"`
}

// KeyPayloadInner contains the gesture details.
type KeyPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Index     int    `json:"index"`
	Click     string `json:"click"`
	Action    string `json:"action,omitempty"`
}

// FormatKeyPayload creates the JSON payload for a key gesture.
func FormatKeyPayload(event KeyEvent) ([]byte, error) {
	return json.Marshal(KeyPayload{
		Key: KeyPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Index:     event.Key.KeyIndex,
			Click:     event.Key.Click.String(),
			Action:    event.Action,
		},
	})
}

// SensorPayload is the message published on TopicSensors.
type SensorPayload struct {
	Sensors SensorPayloadInner `json:"sensors"`
}

// SensorPayloadInner carries one reading. Pressure is omitted when no
// barometer is fitted.
type SensorPayloadInner struct {
	Timestamp   string   `json:"timestamp"`
	Temperature float64  `json:"temperature_c"`
	Humidity    float64  `json:"humidity_pct"`
	Pressure    *float64 `json:"pressure_hpa,omitempty"`
	Battery     string   `json:"battery"`
	Charging    bool     `json:"charging"`
}

// FormatSensorPayload creates the JSON payload for a sensor snapshot.
func FormatSensorPayload(snap sensor.Snapshot) ([]byte, error) {
	inner := SensorPayloadInner{
		Timestamp:   snap.Time.UTC().Format(time.RFC3339),
		Temperature: round1(snap.Celsius()),
		Humidity:    round1(snap.HumidityPercent()),
		Battery:     snap.Battery.String(),
		Charging:    snap.Charging,
	}
	if snap.Pressure != 0 {
		hpa := round1(snap.HectoPascal())
		inner.Pressure = &hpa
	}
	return json.Marshal(SensorPayload{Sensors: inner})
}

func round1(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v*10+0.5)) / 10
	}
	return float64(int64(v*10+0.5)) / 10
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
