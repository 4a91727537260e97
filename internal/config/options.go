package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/sweeney/epaper-display/internal/button"
	"github.com/sweeney/epaper-display/internal/gpio"
	"github.com/sweeney/epaper-display/internal/power"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// Panel kinds.
const (
	PanelWaveshare = "waveshare"
	PanelTerminal  = "terminal"
)

// Options are the daemon's start-up settings: hardware wiring and service
// endpoints. They come from flags, EPAPER_* variables or a YAML file.
type Options struct {
	DataRoot string
	HTTPAddr string
	Broker   string
	OTA      string

	GPIOChip    string
	ButtonPins  []int
	BatteryPins []int
	ChargePin   int
	Buttons     button.Config

	I2CBus        string
	SHT3xAddr     uint16
	BarometerAddr uint16
	SPIPort       string
	Panel         string

	AudioRate int
	MediaFile string
	BootBeep  bool

	WiFiInterface string
	NTPServer     string
	WakeAlarm     string
	BatteryBands  power.BandTable
}

// Option defaults that are not zero values. Flags and SetDefaults both use
// them.
const (
	DefaultDataRoot      = "/fat"
	DefaultHTTPAddr      = ":80"
	DefaultSHT3xAddr     = sensor.SHT3xAddr
	DefaultAudioRate     = 44100
	DefaultBootBeep      = true
	DefaultWiFiInterface = "wlan0"
	DefaultBatteryBands  = "2:100,1:75-50,0:50-25,*:25-0"
)

// Viper keys and their defaults.
var defaults = map[string]any{
	"data-root":      DefaultDataRoot,
	"http":           DefaultHTTPAddr,
	"broker":         "",
	"ota-server":     "",
	"gpio-chip":      gpio.DefaultChip,
	"button-pins":    gpio.DefaultButtonPins,
	"battery-pins":   gpio.DefaultBatteryPins,
	"charge-pin":     gpio.DefaultChargePin,
	"debounce":       button.DefaultConfig().Debounce,
	"release-window": button.DefaultConfig().ReleaseWindow,
	"hold-limit":     button.DefaultConfig().HoldLimit,
	"i2c-bus":        "",
	"sht3x-addr":     DefaultSHT3xAddr,
	"barometer-addr": 0,
	"spi-port":       "",
	"panel":          PanelWaveshare,
	"audio-rate":     DefaultAudioRate,
	"media-file":     "",
	"boot-beep":      DefaultBootBeep,
	"wifi-interface": DefaultWiFiInterface,
	"ntp-server":     "",
	"wake-alarm":     power.DefaultWakeAlarm,
	"battery-bands":  DefaultBatteryBands,
}

// SetDefaults registers every option default on v.
func SetDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// LoadOptionsFromViper reads Options from v.
func LoadOptionsFromViper(v *viper.Viper) (Options, error) {
	o := Options{
		DataRoot:    v.GetString("data-root"),
		HTTPAddr:    v.GetString("http"),
		Broker:      v.GetString("broker"),
		OTA:         v.GetString("ota-server"),
		GPIOChip:    v.GetString("gpio-chip"),
		ButtonPins:  v.GetIntSlice("button-pins"),
		BatteryPins: v.GetIntSlice("battery-pins"),
		ChargePin:   v.GetInt("charge-pin"),
		Buttons: button.Config{
			Debounce:      v.GetDuration("debounce"),
			ReleaseWindow: v.GetDuration("release-window"),
			HoldLimit:     v.GetDuration("hold-limit"),
		},
		I2CBus:        v.GetString("i2c-bus"),
		SHT3xAddr:     uint16(v.GetUint("sht3x-addr")),
		BarometerAddr: uint16(v.GetUint("barometer-addr")),
		SPIPort:       v.GetString("spi-port"),
		Panel:         v.GetString("panel"),
		AudioRate:     v.GetInt("audio-rate"),
		MediaFile:     v.GetString("media-file"),
		BootBeep:      v.GetBool("boot-beep"),
		WiFiInterface: v.GetString("wifi-interface"),
		NTPServer:     v.GetString("ntp-server"),
		WakeAlarm:     v.GetString("wake-alarm"),
	}

	if o.MediaFile == "" {
		o.MediaFile = filepath.Join(o.DataRoot, "system", "audio", "audio.wav")
	}
	if len(o.ButtonPins) == 0 {
		return Options{}, fmt.Errorf("button-pins: at least one pin required")
	}
	if len(o.BatteryPins) != 3 {
		return Options{}, fmt.Errorf("battery-pins: want 3 pins, got %d", len(o.BatteryPins))
	}
	switch o.Panel {
	case PanelWaveshare, PanelTerminal:
	default:
		return Options{}, fmt.Errorf("panel: unknown kind %q", o.Panel)
	}
	if o.Buttons.Debounce <= 0 || o.Buttons.ReleaseWindow <= 0 || o.Buttons.HoldLimit <= 0 {
		return Options{}, fmt.Errorf("button timings must be positive")
	}
	if o.AudioRate <= 0 {
		o.AudioRate = DefaultAudioRate
	}

	bands, err := power.ParseBandTable(v.GetString("battery-bands"))
	if err != nil {
		return Options{}, fmt.Errorf("battery-bands: %w", err)
	}
	o.BatteryBands = bands
	return o, nil
}
