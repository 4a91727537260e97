package app

import (
	"context"
	"fmt"

	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/mqtt"
	"github.com/sweeney/epaper-display/internal/ota"
	"github.com/sweeney/epaper-display/internal/status"
)

// connectNet joins WiFi and, once associated, syncs firmware, the clock and
// the weather. Only the join itself can fail the call.
func (a *App) connectNet(ctx context.Context) error {
	if !a.netMu.TryLock() {
		return ErrNetBusy
	}
	defer a.netMu.Unlock()

	log := a.log.WithName("net")
	cfg := a.cfg.Snapshot()
	ip, err := a.deps.Board.WiFiConnect(ctx, cfg.WiFiSSID, cfg.WiFiPassword, cfg.LinkTimeout())
	if err != nil {
		a.deps.Tracker.SetNetwork(nil)
		return fmt.Errorf("wifi connect: %w", err)
	}
	log.Info("wifi connected", "ssid", cfg.WiFiSSID, "ip", ip.IP)
	a.cfg.Update(func(c *config.DeviceConfig) { c.IPInfo = &ip })
	a.deps.Tracker.SetNetwork(&status.NetworkInfo{
		SSID:    cfg.WiFiSSID,
		IP:      ip.IP,
		Netmask: ip.Netmask,
		Gateway: ip.Gateway,
		DNS:     ip.DNS,
	})

	if a.deps.Updater != nil {
		if _, err := a.deps.Updater.Sync(ctx); err != nil {
			log.Error(err, "firmware sync")
		}
	}

	if a.deps.Clock != nil && config.CurrentTimeIsTooOld(a.now()) {
		if t, err := a.deps.Clock.Sync(cfg.LinkTimeout() / 2); err != nil {
			log.Error(err, "ntp sync")
		} else {
			log.Info("clock set", "time", t)
		}
	}

	if err := a.updateWeatherPerHour(ctx); err != nil {
		log.Error(err, "update weather")
	}
	return nil
}

// updateWeatherPerHour fetches the forecast at most once per local hour.
func (a *App) updateWeatherPerHour(ctx context.Context) error {
	if a.deps.Weather == nil {
		return nil
	}
	cfg := a.cfg.Snapshot()
	if cfg.WeatherAPIKey == "" {
		a.log.V(1).Info("no weather api key")
		return nil
	}
	hour := a.now().In(cfg.Location()).Hour()
	if cfg.LastUpdateWeather == hour {
		return nil
	}
	f, err := a.deps.Weather.Daily7(ctx, cfg.CityName, cfg.WeatherAPIKey)
	if err != nil {
		return err
	}
	return a.cfg.UpdateAndSave(func(c *config.DeviceConfig) {
		c.Weather = f
		c.LastUpdateWeather = hour
	})
}

// ObserveOTA records updater transitions and reports the interesting ones.
func (a *App) ObserveOTA(s ota.State) {
	a.deps.Tracker.SetOTA(s.String())
	switch s {
	case ota.Downloading, ota.Rebooting, ota.Aborted:
		a.publishStatus("OTA", s.String(), false)
	}
}

// publishStatus sends a lifecycle event carrying the full status snapshot.
func (a *App) publishStatus(event, reason string, retained bool) {
	pub := a.deps.Publisher
	if pub == nil {
		return
	}
	if cs, ok := pub.(mqtt.ConnectionStatus); ok {
		a.deps.Tracker.SetMQTT(cs.IsConnected(), cs.Buffered())
	}
	snap := a.deps.Tracker.Snapshot()
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		a.log.Error(err, "publish system event", "event", event)
	}
}
