package app

import (
	"context"
	"time"

	"github.com/sweeney/epaper-display/internal/button"
	"github.com/sweeney/epaper-display/internal/power"
	"github.com/sweeney/epaper-display/internal/screen"
)

func (a *App) mainLoop(ctx context.Context) {
	for ctx.Err() == nil {
		d, charging := a.cycle(ctx)
		if ctx.Err() != nil {
			return
		}
		a.sleep(ctx, d, charging)
	}
}

// cycle reads the sensors, asks for a periodic redraw and saves the config.
// It returns how long to sleep and whether the battery is charging.
func (a *App) cycle(ctx context.Context) (time.Duration, bool) {
	a.loopTimes++
	// The page is read below; earlier changes need no extra wake.
	select {
	case <-a.wake:
	default:
	}

	snap, err := a.deps.Board.ReadAllSensors(ctx)
	if err != nil {
		a.log.Error(err, "read sensors")
	} else {
		a.sendScreen(screen.UpdateSensorSnapshot{Data: snap})
		a.deps.Tracker.SetSensors(snap)
		if a.deps.Publisher != nil {
			if err := a.deps.Publisher.PublishSensors(snap); err != nil {
				a.log.Error(err, "publish sensors")
			}
		}
		a.log.V(1).Info("sensors", "temp", snap.Celsius(), "humidity", snap.HumidityPercent(), "battery", snap.Battery)
	}

	// The boot refresh already drew the saved page; skip the first cycle so
	// it is not drawn twice.
	current := a.cfg.CurrentPage()
	if a.loopTimes > 1 {
		a.sendScreen(screen.Refresh{Page: current})
	}

	d := power.MaxSleep
	if current.NeedsPeriodicRefresh() {
		d = power.NextMinuteLeftTime(a.now())
	}

	if err := a.cfg.Save(); err != nil {
		a.log.Error(err, "save config")
	}
	a.deps.Tracker.SetCycle(a.cfg.Snapshot().BootTimes, a.loopTimes)
	return d, a.deps.Board.IsCharging()
}

// sleep keeps every task alive while charging, waking early if a key
// changes the page. On battery it powers the board down once any click
// sequence has finished and the panel has finished drawing.
func (a *App) sleep(ctx context.Context, d time.Duration, charging bool) {
	if charging {
		a.lightSleep(ctx, d)
		return
	}

	a.waitKeys(ctx)
	a.flushScreen(ctx)
	a.log.Info("deep sleep", "duration", d)
	a.publishStatus("SLEEP", "DEEP", true)
	if err := a.deps.Sleeper.DeepSleep(d); err != nil {
		a.log.Error(err, "deep sleep, falling back to light sleep")
		if err := a.deps.Sleeper.LightSleep(ctx, d); err != nil && ctx.Err() == nil {
			a.log.Error(err, "light sleep")
		}
	}
}

func (a *App) lightSleep(ctx context.Context, d time.Duration) {
	a.log.V(1).Info("light sleep", "duration", d)
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.wake:
			a.log.V(1).Info("page changed, ending light sleep")
			cancel()
		case <-sctx.Done():
		}
	}()
	if err := a.deps.Sleeper.LightSleep(sctx, d); err != nil && sctx.Err() == nil {
		a.log.Error(err, "light sleep")
	}
}

// waitKeys lets an open click sequence finish before the board powers down.
func (a *App) waitKeys(ctx context.Context) {
	if !a.poller.Busy() {
		return
	}
	a.log.V(1).Info("key in progress, delaying deep sleep")
	deadline := time.NewTimer(KeyIdleTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(button.PollInterval)
	defer tick.Stop()
	for a.poller.Busy() {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			a.log.Info("key still busy, sleeping anyway", "timeout", KeyIdleTimeout)
			return
		case <-tick.C:
		}
	}
}

// flushScreen waits until the screen task has applied everything sent so far.
func (a *App) flushScreen(ctx context.Context) {
	done := make(chan struct{})
	if err := a.screenQ.Send(screen.Flush{Done: done}); err != nil {
		return
	}
	timer := time.NewTimer(FlushTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-ctx.Done():
	case <-timer.C:
		a.log.Info("screen flush timed out", "timeout", FlushTimeout)
	}
}
