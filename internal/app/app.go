// Package app wires the display's tasks together: the key poller and key
// task, the screen and audio tasks, the network sync and the main loop that
// reads sensors and puts the board to sleep between minutes.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/epaper-display/internal/audio"
	"github.com/sweeney/epaper-display/internal/button"
	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/event"
	"github.com/sweeney/epaper-display/internal/gpio"
	"github.com/sweeney/epaper-display/internal/mqtt"
	"github.com/sweeney/epaper-display/internal/network"
	"github.com/sweeney/epaper-display/internal/ota"
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/power"
	"github.com/sweeney/epaper-display/internal/screen"
	"github.com/sweeney/epaper-display/internal/sensor"
	"github.com/sweeney/epaper-display/internal/status"
	"github.com/sweeney/epaper-display/internal/weather"
)

// Peripherals is the shared, locked part of the board.
type Peripherals interface {
	ReadAllSensors(ctx context.Context) (sensor.Snapshot, error)
	IsCharging() bool
	WiFiConnect(ctx context.Context, ssid, password string, timeout time.Duration) (network.IPInfo, error)
}

// Updater checks for and installs new firmware.
type Updater interface {
	Sync(ctx context.Context) (ota.State, error)
}

// Forecaster fetches the weather shown on the weather pages.
type Forecaster interface {
	Daily7(ctx context.Context, city, key string) (*weather.Forecast, error)
}

// ClockSync sets the system clock from the network.
type ClockSync interface {
	Sync(timeout time.Duration) (time.Time, error)
}

// Deps is everything the daemon drives. Updater, Weather, Clock and
// Publisher may be nil.
type Deps struct {
	Board     Peripherals
	Buttons   gpio.Reader
	Panel     screen.Panel
	Audio     audio.Backend
	Sleeper   power.Sleeper
	Store     *config.Store
	Tracker   *status.Tracker
	Publisher mqtt.Publisher
	Updater   Updater
	Weather   Forecaster
	Clock     ClockSync
}

// Options are the daemon settings app needs.
type Options struct {
	DataRoot  string
	MediaFile string
	BootBeep  bool
	Buttons   button.Config
}

// Popup shown on a double click.
const (
	PopupTitle   = "Warning"
	PopupMessage = "test"
)

// FlushTimeout bounds the wait for the panel before a deep sleep.
const FlushTimeout = 30 * time.Second

// KeyIdleTimeout bounds the wait for an open click sequence before a deep
// sleep.
const KeyIdleTimeout = 2 * time.Second

// ErrNetBusy is returned when a network sync is already running.
var ErrNetBusy = errors.New("app: network sync already running")

// App is one run of the daemon.
type App struct {
	deps Deps
	opts Options
	log  logr.Logger
	now  func() time.Time

	cfg    *config.Shared
	screen *screen.Task
	audio  *audio.Task
	poller *button.Poller

	screenQ *event.Queue[screen.Event]
	audioQ  *event.Queue[audio.Command]
	keyQ    *event.Queue[button.PressedKeyInfo]

	netMu     sync.Mutex
	loopTimes uint64

	// wake ends a light sleep early when the page changes.
	wake chan struct{}
}

// New builds the tasks. Nothing runs until Run.
func New(deps Deps, opts Options, log logr.Logger) (*App, error) {
	if deps.Board == nil || deps.Buttons == nil || deps.Panel == nil || deps.Sleeper == nil || deps.Store == nil {
		return nil, fmt.Errorf("app: missing dependency")
	}
	if deps.Audio == nil {
		deps.Audio = audio.Discard{}
	}
	if deps.Tracker == nil {
		deps.Tracker = status.NewTracker(time.Now(), status.Config{})
	}

	a := &App{
		deps:    deps,
		opts:    opts,
		log:     log,
		now:     time.Now,
		screenQ: event.NewQueue[screen.Event](),
		audioQ:  event.NewQueue[audio.Command](),
		keyQ:    event.NewQueue[button.PressedKeyInfo](),
		wake:    make(chan struct{}, 1),
	}

	renderer, err := screen.NewRenderer(opts.DataRoot, a.config)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	a.screen = screen.NewTask(deps.Panel, renderer, log.WithName("screen"))
	a.screen.OnPageChange = a.pageChanged
	a.audio = audio.NewTask(deps.Audio, log.WithName("audio"))
	a.poller = button.NewPoller(deps.Buttons, opts.Buttons, a.keyQ, log.WithName("key"))
	return a, nil
}

// config is read by the renderer on every compose.
func (a *App) config() config.DeviceConfig {
	if a.cfg == nil {
		return config.Default()
	}
	return a.cfg.Snapshot()
}

func (a *App) pageChanged(p page.ActivePage) error {
	a.deps.Tracker.SetPage(p)
	err := a.cfg.SetPage(p)
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return err
}

// Run boots, starts every task and runs the main loop until ctx is done.
// Only boot failures are returned.
func (a *App) Run(ctx context.Context) error {
	if err := a.boot(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.screen.Run(gctx, a.screenQ) })
	g.Go(func() error { return a.audio.Run(gctx, a.audioQ) })
	g.Go(func() error { return a.runKeys(gctx) })
	g.Go(func() error { return a.poller.Run(gctx) })

	if a.opts.BootBeep {
		a.sendAudio(audio.KeyBeep)
	}
	a.publishStatus("STARTUP", "", true)

	if cfg := a.cfg.Snapshot(); cfg.NeedConnectWiFi() {
		if err := a.connectNet(gctx); err != nil {
			a.log.Error(err, "connect net")
		}
	} else {
		a.log.Info("wifi skipped this boot", "boot_times", cfg.BootTimes, "interval", cfg.WiFiConnectInterval)
	}

	a.mainLoop(gctx)

	a.publishStatus("SHUTDOWN", shutdownReason(ctx), true)
	a.screenQ.Close()
	a.audioQ.Close()
	a.keyQ.Close()
	return g.Wait()
}

// boot loads the device config, applies it and asks for the saved page.
func (a *App) boot() error {
	cfg, err := a.deps.Store.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.IPInfo = nil
	a.cfg = config.NewShared(cfg, a.deps.Store)
	a.log.Info("time zone", "zone", cfg.Location().String())

	if err := a.cfg.BootTimesAdd(); err != nil {
		a.log.Error(err, "save boot counter")
	}
	snap := a.cfg.Snapshot()
	a.deps.Tracker.SetCycle(snap.BootTimes, 0)
	a.log.Info("boot", "boot_times", snap.BootTimes, "page", snap.CurrentPage, "firmware", snap.DeviceInfo.Version)

	a.sendScreen(screen.Refresh{Page: snap.CurrentPage})
	return nil
}

func (a *App) sendScreen(ev screen.Event) {
	if err := a.screenQ.Send(ev); err != nil {
		a.log.Error(err, "screen send failed", "event", fmt.Sprintf("%T", ev))
	}
}

func (a *App) sendAudio(cmd audio.Command) {
	if err := a.audioQ.Send(cmd); err != nil {
		a.log.Error(err, "audio send failed", "cmd", fmt.Sprintf("%T", cmd))
	}
}

func shutdownReason(ctx context.Context) string {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause.Error()
	}
	return "CANCELED"
}
