// Command epaper-display drives a battery-powered e-paper display: it reads
// the sensors, draws the selected page, handles the keys and sleeps between
// refreshes.
package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/epaper-display/internal/button"
	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/gpio"
	"github.com/sweeney/epaper-display/internal/hlog"
	"github.com/sweeney/epaper-display/internal/power"
)

// EnvPrefix prefixes every option read from the environment, e.g.
// EPAPER_BROKER or EPAPER_BUTTON_PINS.
const EnvPrefix = "EPAPER"

var flags struct {
	Verbose bool
	Debug   bool
	LogFile string
	Stderr  bool
	Config  string
}

var (
	v   = newViper()
	log = logr.Discard()
)

var rootCmd = &cobra.Command{
	Use:           "epaper-display",
	Short:         "E-paper display daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = hlog.New(hlog.Options{
			Verbose: flags.Verbose,
			Debug:   flags.Debug,
			File:    flags.LogFile,
			Stderr:  flags.Stderr,
		})
		if flags.Config != "" {
			v.SetConfigFile(flags.Config)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read %s: %w", flags.Config, err)
			}
			log.Info("config file loaded", "path", v.ConfigFileUsed())
		}
		return nil
	},
}

func init() {
	cobra.EnableTraverseRunHooks = true

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "log at info level")
	pf.BoolVar(&flags.Debug, "debug", false, "log at debug level")
	pf.StringVar(&flags.LogFile, "log-file", hlog.DefaultFile, "rotated log file used without a terminal")
	pf.BoolVar(&flags.Stderr, "stderr", false, "log to the console even without a terminal")
	pf.StringVarP(&flags.Config, "config", "c", "", "YAML file with daemon options")

	addOptionFlags(pf)
	if err := v.BindPFlags(pf); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd, sensorsCmd, configCmd, previewCmd, versionCmd)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	config.SetDefaults(v)
	return v
}

// addOptionFlags declares one flag per daemon option. Flag names are the
// viper keys.
func addOptionFlags(fs *pflag.FlagSet) {
	keys := button.DefaultConfig()

	fs.String("data-root", config.DefaultDataRoot, "directory holding the config, images and audio")
	fs.String("http", config.DefaultHTTPAddr, "HTTP status address (empty to disable)")
	fs.String("broker", "", "MQTT broker address, e.g. tcp://192.168.1.200:1883 (empty to disable)")
	fs.String("ota-server", "", "firmware update server URL (empty to disable)")

	fs.String("gpio-chip", gpio.DefaultChip, "GPIO character device")
	fs.IntSlice("button-pins", gpio.DefaultButtonPins, "BCM pins of the keys, in key order")
	fs.IntSlice("battery-pins", gpio.DefaultBatteryPins, "BCM pins of the three battery level inputs")
	fs.Int("charge-pin", gpio.DefaultChargePin, "BCM pin of the charger status (-1 if not fitted)")
	fs.Duration("debounce", keys.Debounce, "key debounce time")
	fs.Duration("release-window", keys.ReleaseWindow, "time after a release that ends a click sequence")
	fs.Duration("hold-limit", keys.HoldLimit, "hold time after which a press cancels the gesture and yields no click")

	fs.String("i2c-bus", "", "I2C bus name (empty for the first bus)")
	fs.Uint16("sht3x-addr", config.DefaultSHT3xAddr, "I2C address of the climate sensor")
	fs.Uint16("barometer-addr", 0, "I2C address of the BMP280/BME280 (0 if not fitted)")
	fs.String("spi-port", "", "SPI port of the panel (empty for the first port)")
	fs.String("panel", config.PanelWaveshare, "panel kind: waveshare or terminal")

	fs.Int("audio-rate", config.DefaultAudioRate, "audio sample rate")
	fs.String("media-file", "", "WAV file played on a triple click of key 2")
	fs.Bool("boot-beep", config.DefaultBootBeep, "beep once at boot")

	fs.String("wifi-interface", config.DefaultWiFiInterface, "wireless interface joined through NetworkManager")
	fs.String("ntp-server", "", "NTP server used when the clock is unset")
	fs.String("wake-alarm", power.DefaultWakeAlarm, "RTC wakealarm file used for deep sleep")
	fs.String("battery-bands", config.DefaultBatteryBands, "battery level per highest active input")
}

// signalName names a shutdown signal in the SHUTDOWN event.
func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func since(t time.Time) time.Duration {
	return time.Since(t).Truncate(time.Millisecond)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
