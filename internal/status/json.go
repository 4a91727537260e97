package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Page          string       `json:"page"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	BootTimes     uint32       `json:"boot_times"`
	LoopTimes     uint64       `json:"loop_times"`
	OTA           string       `json:"ota"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Sensors       *SensorsJSON `json:"sensors,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	LastKey       *KeyJSON     `json:"last_key,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Buffered  int    `json:"buffered"`
	Broker    string `json:"broker"`
}

// SensorsJSON is the JSON representation of the last reading.
type SensorsJSON struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature_c"`
	Humidity    float64 `json:"humidity_pct"`
	Pressure    float64 `json:"pressure_hpa,omitempty"`
	Battery     string  `json:"battery"`
	Charging    bool    `json:"charging"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	SSID    string `json:"ssid"`
	IP      string `json:"ip"`
	Netmask string `json:"netmask,omitempty"`
	Gateway string `json:"gateway,omitempty"`
	DNS     string `json:"dns,omitempty"`
}

// KeyJSON is the JSON representation of the last gesture.
type KeyJSON struct {
	Index  int    `json:"index"`
	Click  string `json:"click"`
	Action string `json:"action,omitempty"`
	Time   string `json:"time"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Firmware string `json:"firmware"`
	Broker   string `json:"broker"`
	HTTPAddr string `json:"http_addr"`
	Panel    string `json:"panel"`
	DataRoot string `json:"data_root"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Page:          snap.Page.String(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		BootTimes:     snap.BootTimes,
		LoopTimes:     snap.LoopTimes,
		OTA:           snap.OTA,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Buffered: snap.MQTTBuffered, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Firmware: snap.Config.Firmware,
			Broker:   snap.Config.Broker,
			HTTPAddr: snap.Config.HTTPAddr,
			Panel:    snap.Config.Panel,
			DataRoot: snap.Config.DataRoot,
		},
	}
	if snap.HaveSensors {
		s := snap.Sensors
		inner.Sensors = &SensorsJSON{
			Time:        s.Time.UTC().Format(time.RFC3339),
			Temperature: round1(s.Celsius()),
			Humidity:    round1(s.HumidityPercent()),
			Pressure:    round1(s.HectoPascal()),
			Battery:     s.Battery.String(),
			Charging:    s.Charging,
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			SSID:    snap.Network.SSID,
			IP:      snap.Network.IP,
			Netmask: snap.Network.Netmask,
			Gateway: snap.Network.Gateway,
			DNS:     snap.Network.DNS,
		}
	}
	if snap.LastKey != nil {
		inner.LastKey = &KeyJSON{
			Index:  snap.LastKey.Index,
			Click:  snap.LastKey.Click,
			Action: snap.LastKey.Action,
			Time:   snap.LastKey.Time.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

func round1(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v*10+0.5)) / 10
	}
	return float64(int64(v*10+0.5)) / 10
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
