package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/gpio"
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/sensor"
)

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestSignalContextStopCancels(t *testing.T) {
	ctx, stop := signalContext(context.Background(), logr.Discard())
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by stop")
	}
	if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
		t.Errorf("cause: got %v, want context.Canceled", cause)
	}
}

func TestSignalContextCause(t *testing.T) {
	ctx, stop := signalContext(context.Background(), logr.Discard())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
	if cause := context.Cause(ctx); cause == nil || cause.Error() != "SIGTERM" {
		t.Errorf("cause: got %v, want SIGTERM", cause)
	}
}

func TestOptionFlagsOverrideDefaults(t *testing.T) {
	vp := newViper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addOptionFlags(fs)
	if err := fs.Parse([]string{"--panel", "terminal", "--broker", "tcp://10.0.0.2:1883", "--barometer-addr", "118"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := vp.BindPFlags(fs); err != nil {
		t.Fatalf("bind: %v", err)
	}

	o, err := config.LoadOptionsFromViper(vp)
	if err != nil {
		t.Fatalf("LoadOptionsFromViper: %v", err)
	}
	if o.Panel != config.PanelTerminal {
		t.Errorf("Panel: got %q, want terminal", o.Panel)
	}
	if o.Broker != "tcp://10.0.0.2:1883" {
		t.Errorf("Broker: got %q", o.Broker)
	}
	if o.BarometerAddr != 0x76 {
		t.Errorf("BarometerAddr: got %#x, want 0x76", o.BarometerAddr)
	}
	if o.GPIOChip != gpio.DefaultChip {
		t.Errorf("GPIOChip: got %q, want default %q", o.GPIOChip, gpio.DefaultChip)
	}
	if len(o.ButtonPins) != len(gpio.DefaultButtonPins) {
		t.Errorf("ButtonPins: got %v, want %v", o.ButtonPins, gpio.DefaultButtonPins)
	}
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("EPAPER_BROKER", "tcp://broker.lan:1883")
	t.Setenv("EPAPER_CHARGE_PIN", "-1")
	t.Setenv("EPAPER_DATA_ROOT", "/srv/epaper")

	o, err := config.LoadOptionsFromViper(newViper())
	if err != nil {
		t.Fatalf("LoadOptionsFromViper: %v", err)
	}
	if o.Broker != "tcp://broker.lan:1883" {
		t.Errorf("Broker: got %q", o.Broker)
	}
	if o.ChargePin != -1 {
		t.Errorf("ChargePin: got %d, want -1", o.ChargePin)
	}
	if o.DataRoot != "/srv/epaper" {
		t.Errorf("DataRoot: got %q", o.DataRoot)
	}
	if want := filepath.Join("/srv/epaper", "system", "audio", "audio.wav"); o.MediaFile != want {
		t.Errorf("MediaFile: got %q, want %q", o.MediaFile, want)
	}
}

func TestPreviewDrawsPage(t *testing.T) {
	var buf bytes.Buffer
	snap := sensor.Snapshot{Time: time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)}
	if err := preview(&buf, t.TempDir(), config.Default(), page.Home, snap); err != nil {
		t.Fatalf("preview: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("nothing written")
	}
	if !strings.Contains(buf.String(), "\033[0m\n") {
		t.Error("output has no terminal rows")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, config.Default()); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	var got config.DeviceConfig
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.CurrentPage != page.Home {
		t.Errorf("CurrentPage: got %v, want Home", got.CurrentPage)
	}
}

func TestConfigResetThenShow(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"config", "reset", "--data-root", dir, "--log-file", logFile})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config reset: %v", err)
	}
	if _, err := os.Stat(config.NewStore(dir, logr.Discard()).Path()); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out.Reset()
	rootCmd.SetArgs([]string{"config", "show", "--data-root", dir, "--log-file", logFile})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}
	var got config.DeviceConfig
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("show output: %v\n%s", err, out.String())
	}
	if got.WiFiConnectInterval != config.Default().WiFiConnectInterval {
		t.Errorf("WiFiConnectInterval: got %d", got.WiFiConnectInterval)
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	rootCmd.SetArgs([]string{"version", "--log-file", filepath.Join(t.TempDir(), "test.log")})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	want := config.DeviceType + " " + config.BuildTime + "\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestNewUpdaterAdoptsRunningExecutable(t *testing.T) {
	o := config.Options{OTA: "http://127.0.0.1:1", DataRoot: t.TempDir()}
	if _, err := newUpdater(o, config.Default(), logr.Discard()); err != nil {
		t.Fatalf("newUpdater: %v", err)
	}
	link := filepath.Join(o.DataRoot, "system", "ota", "current")
	dest, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("boot link: %v", err)
	}
	if dest != "slot-a.bin" {
		t.Errorf("boot link: got %q, want slot-a.bin", dest)
	}
}

func TestFlagDefaultsMatchOptionDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addOptionFlags(fs)
	flagsOnly := viper.New()
	if err := flagsOnly.BindPFlags(fs); err != nil {
		t.Fatalf("bind: %v", err)
	}

	fromFlags, err := config.LoadOptionsFromViper(flagsOnly)
	if err != nil {
		t.Fatalf("flag defaults: %v", err)
	}
	fromDefaults, err := config.LoadOptionsFromViper(newViper())
	if err != nil {
		t.Fatalf("option defaults: %v", err)
	}
	if !reflect.DeepEqual(fromFlags, fromDefaults) {
		t.Errorf("flag defaults drifted from option defaults:\nflags:    %+v\ndefaults: %+v", fromFlags, fromDefaults)
	}
}

func TestHoldLimitHelp(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addOptionFlags(fs)
	usage := fs.Lookup("hold-limit").Usage
	if !strings.Contains(usage, "no click") || strings.Contains(usage, "triple") {
		t.Errorf("hold-limit usage: %q", usage)
	}
}
