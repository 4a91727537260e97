package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/sweeney/epaper-display/internal/power"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadOptionsDefaults(t *testing.T) {
	o, err := LoadOptionsFromViper(newTestViper())
	if err != nil {
		t.Fatalf("LoadOptionsFromViper: %v", err)
	}
	if o.DataRoot != "/fat" || o.HTTPAddr != ":80" || o.Panel != PanelWaveshare {
		t.Errorf("unexpected defaults: %+v", o)
	}
	if len(o.ButtonPins) != 3 || len(o.BatteryPins) != 3 {
		t.Errorf("pins: buttons=%v battery=%v", o.ButtonPins, o.BatteryPins)
	}
	if o.SHT3xAddr != 0x44 || o.BarometerAddr != 0 {
		t.Errorf("addresses: sht3x=%#x baro=%#x", o.SHT3xAddr, o.BarometerAddr)
	}
	if o.Buttons.Debounce != 20*time.Millisecond {
		t.Errorf("debounce: %v", o.Buttons.Debounce)
	}
	if o.MediaFile != filepath.Join("/fat", "system", "audio", "audio.wav") {
		t.Errorf("media file: %q", o.MediaFile)
	}
	if got := o.BatteryBands.Level([]bool{false, false, true}); got != power.Level100 {
		t.Errorf("battery bands: got %v", got)
	}
}

func TestLoadOptionsOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("data-root", "/srv/epd")
	v.Set("panel", PanelTerminal)
	v.Set("button-pins", []int{1, 2})
	v.Set("debounce", "30ms")
	o, err := LoadOptionsFromViper(v)
	if err != nil {
		t.Fatalf("LoadOptionsFromViper: %v", err)
	}
	if o.Panel != PanelTerminal || len(o.ButtonPins) != 2 || o.Buttons.Debounce != 30*time.Millisecond {
		t.Errorf("overrides not applied: %+v", o)
	}
	if o.MediaFile != "/srv/epd/system/audio/audio.wav" {
		t.Errorf("media file should follow data root: %q", o.MediaFile)
	}
}

func TestLoadOptionsValidation(t *testing.T) {
	tests := []struct {
		key string
		val any
	}{
		{"panel", "crt"},
		{"battery-pins", []int{1, 2}},
		{"button-pins", []int{}},
		{"battery-bands", "2:100"},
		{"hold-limit", "0s"},
	}
	for _, tt := range tests {
		v := newTestViper()
		v.Set(tt.key, tt.val)
		if _, err := LoadOptionsFromViper(v); err == nil {
			t.Errorf("%s=%v: expected error", tt.key, tt.val)
		}
	}
}
