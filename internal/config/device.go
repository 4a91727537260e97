// Package config holds the persisted device record and the daemon's
// start-up options.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/renameio/v2"

	"github.com/sweeney/epaper-display/internal/network"
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/weather"
)

// BuildTime is the firmware version, stamped at link time with
// -ldflags "-X github.com/sweeney/epaper-display/internal/config.BuildTime=...".
// It uses the OTA version layout.
var BuildTime = "2026-01-01 00:00:00"

// DeviceType identifies this firmware to the update server.
const DeviceType = "epaper-display"

// FilePath is the config location relative to the data root.
const FilePath = "system/config"

// ErrNotFound is returned by Store.Read when no config file exists.
var ErrNotFound = errors.New("config: not found")

// UserInfo is the account the device reports to the update server.
type UserInfo struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DeviceInfo identifies the firmware build.
type DeviceInfo struct {
	Version    string `json:"version"`
	DeviceType string `json:"device_type"`
}

// DeviceConfig is the persisted device record.
type DeviceConfig struct {
	UserInfo   UserInfo   `json:"user_info"`
	DeviceInfo DeviceInfo `json:"device_info"`

	WiFiSSID     string `json:"wifi_ssid"`
	WiFiPassword string `json:"wifi_password"`

	// Minutes between update queries.
	RequeryUpgradeTimeMinutes uint32 `json:"requery_upgrade_time_minutes"`
	// Seconds allowed for a WiFi join.
	WiFiMaxLinkTime uint8 `json:"wifi_max_link_time"`
	// IANA zone name, e.g. "Asia/Shanghai".
	TimeZone      string `json:"time_zone"`
	CityName      string `json:"city_name"`
	WeatherAPIKey string `json:"weather_api_key"`
	// WiFi is joined on every Nth boot; 0 joins on every boot.
	WiFiConnectInterval uint32 `json:"wifi_connect_interval"`
	BootTimes           uint32 `json:"boot_times"`

	// Local hour of the last weather fetch, -1 if never.
	LastUpdateWeather int               `json:"last_update_weather"`
	Weather           *weather.Forecast `json:"weather,omitempty"`
	CurrentPage       page.ActivePage   `json:"current_page"`
	IPInfo            *network.IPInfo   `json:"ip_info,omitempty"`
}

// Default returns the factory configuration.
func Default() DeviceConfig {
	return DeviceConfig{
		DeviceInfo: DeviceInfo{
			Version:    BuildTime,
			DeviceType: DeviceType,
		},
		WiFiSSID:                  "esp-2.4G",
		WiFiPassword:              "12345678..",
		RequeryUpgradeTimeMinutes: 1440,
		WiFiMaxLinkTime:           30,
		TimeZone:                  "Asia/Shanghai",
		CityName:                  "Fuzhou",
		WiFiConnectInterval:       60,
		BootTimes:                 0,
		LastUpdateWeather:         -1,
		CurrentPage:               page.Home,
	}
}

// NeedConnectWiFi reports whether this boot should join WiFi.
func (c *DeviceConfig) NeedConnectWiFi() bool {
	if c.WiFiConnectInterval == 0 {
		return true
	}
	return c.BootTimes%c.WiFiConnectInterval == 0
}

// Location returns the configured time zone, or time.Local if it does not
// load.
func (c *DeviceConfig) Location() *time.Location {
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		return loc
	}
	return time.Local
}

// LinkTimeout is the WiFi join budget.
func (c *DeviceConfig) LinkTimeout() time.Duration {
	return time.Duration(c.WiFiMaxLinkTime) * time.Second
}

// CurrentTimeIsTooOld reports whether the clock has clearly never been set.
func CurrentTimeIsTooOld(now time.Time) bool {
	return now.Year() < 2025
}

// Store reads and writes the config file.
type Store struct {
	path string
	log  logr.Logger
}

// NewStore returns a store for the config under dataRoot.
func NewStore(dataRoot string, log logr.Logger) *Store {
	return &Store{path: filepath.Join(dataRoot, FilePath), log: log}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Read parses the config file.
func (s *Store) Read() (DeviceConfig, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return DeviceConfig{}, ErrNotFound
	}
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DeviceConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Load reads the config, rebuilding it from defaults if it is missing or
// unparsable. Only a failure to write the rebuilt file is an error.
func (s *Store) Load() (DeviceConfig, error) {
	cfg, err := s.Read()
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, ErrNotFound) {
		s.log.Info("no config file, rebuilding", "path", s.path)
	} else {
		s.log.Error(err, "config unreadable, rebuilding", "path", s.path)
	}
	return s.Rebuild()
}

// Rebuild writes and returns the default config.
func (s *Store) Rebuild() (DeviceConfig, error) {
	cfg := Default()
	if err := s.Save(&cfg); err != nil {
		return DeviceConfig{}, err
	}
	return cfg, nil
}

// Save rewrites the whole file. The new contents are synced to a temporary
// file before it is renamed over the old one, so a power cut leaves either
// the old or the new config.
func (s *Store) Save(cfg *DeviceConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	s.log.V(1).Info("config saved", "path", s.path)
	return nil
}

// Shared is the in-memory device config shared between tasks.
// Forecast and IPInfo pointers are replaced, never mutated in place, so a
// Snapshot can be read without the lock.
type Shared struct {
	mu    sync.Mutex
	cfg   DeviceConfig
	store *Store
}

// NewShared wraps cfg for concurrent use.
func NewShared(cfg DeviceConfig, store *Store) *Shared {
	return &Shared{cfg: cfg, store: store}
}

// Snapshot returns a copy of the current config.
func (s *Shared) Snapshot() DeviceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Update applies fn under the lock without saving.
func (s *Shared) Update(fn func(*DeviceConfig)) {
	s.mu.Lock()
	fn(&s.cfg)
	s.mu.Unlock()
}

// Save persists the current config.
func (s *Shared) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Save(&s.cfg)
}

// UpdateAndSave applies fn and persists the result.
func (s *Shared) UpdateAndSave(fn func(*DeviceConfig)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
	return s.store.Save(&s.cfg)
}

// BootTimesAdd increments the boot counter and saves.
func (s *Shared) BootTimesAdd() error {
	return s.UpdateAndSave(func(c *DeviceConfig) { c.BootTimes++ })
}

// SetPage records the page on screen and saves.
func (s *Shared) SetPage(p page.ActivePage) error {
	return s.UpdateAndSave(func(c *DeviceConfig) { c.CurrentPage = p })
}

// CurrentPage returns the page on screen.
func (s *Shared) CurrentPage() page.ActivePage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.CurrentPage
}
