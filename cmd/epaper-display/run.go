package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/sweeney/epaper-display/internal/app"
	"github.com/sweeney/epaper-display/internal/board"
	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/mqtt"
	"github.com/sweeney/epaper-display/internal/network"
	"github.com/sweeney/epaper-display/internal/ota"
	"github.com/sweeney/epaper-display/internal/power"
	"github.com/sweeney/epaper-display/internal/status"
	"github.com/sweeney/epaper-display/internal/weather"
	"github.com/sweeney/epaper-display/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the display daemon until SIGINT or SIGTERM",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := config.LoadOptionsFromViper(v)
		if err != nil {
			return err
		}
		ctx, stop := signalContext(cmd.Context(), log)
		defer stop()
		return run(ctx, o, log)
	},
}

// signalContext is cancelled on SIGINT or SIGTERM with the signal's name
// as the cause.
func signalContext(parent context.Context, log logr.Logger) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigCh:
			log.Info("shutting down", "signal", s)
			cancel(errors.New(signalName(s)))
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel(nil)
	}
}

func run(ctx context.Context, o config.Options, log logr.Logger) error {
	hw, err := board.Open(o, log.WithName("board"))
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	defer hw.Close()

	store := config.NewStore(o.DataRoot, log.WithName("config"))
	cfg, err := store.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Firmware: config.BuildTime,
		Broker:   o.Broker,
		HTTPAddr: o.HTTPAddr,
		Panel:    o.Panel,
		DataRoot: o.DataRoot,
	})

	deps := app.Deps{
		Board:   hw.Board,
		Buttons: hw.Buttons,
		Panel:   hw.Panel,
		Audio:   hw.Audio,
		Sleeper: power.NewRTCSleeper(o.WakeAlarm),
		Store:   store,
		Tracker: tracker,
		Weather: weather.NewClient(nil),
		Clock:   network.NewNTP(o.NTPServer, network.SetSystemClock),
	}

	if o.Broker != "" {
		publisher, err := mqtt.NewRealPublisher(o.Broker, log.WithName("mqtt"))
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer publisher.Close()
		deps.Publisher = publisher
	}

	var updater *ota.Updater
	if o.OTA != "" {
		updater, err = newUpdater(o, cfg, log.WithName("ota"))
		if err != nil {
			return err
		}
		deps.Updater = updater
	}

	a, err := app.New(deps, app.Options{
		DataRoot:  o.DataRoot,
		MediaFile: o.MediaFile,
		BootBeep:  o.BootBeep,
		Buttons:   o.Buttons,
	}, log)
	if err != nil {
		return err
	}
	if updater != nil {
		updater.OnState = a.ObserveOTA
	}

	if o.HTTPAddr != "" {
		srv := web.New(o.HTTPAddr, tracker, o.DataRoot)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(err, "http server")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
		log.Info("http status server listening", "addr", o.HTTPAddr)
	}

	log.Info("started", "firmware", config.BuildTime, "panel", hw.Panel, "broker", o.Broker, "data_root", o.DataRoot)
	return a.Run(ctx)
}

// newUpdater builds the firmware updater. Images go to two slots under
// the data root; the service unit executes the slots' boot link. On the
// first start the running executable becomes the first slot.
func newUpdater(o config.Options, cfg config.DeviceConfig, log logr.Logger) (*ota.Updater, error) {
	client, err := network.NewClient(o.OTA, network.UserInfo{
		Username: cfg.UserInfo.Username,
		Password: cfg.UserInfo.Password,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("ota-server: %w", err)
	}
	target := ota.NewFileTarget(filepath.Join(o.DataRoot, "system", "ota"))
	if exe, err := os.Executable(); err != nil {
		log.Error(err, "locate running executable")
	} else if adopted, err := target.Adopt(exe); err != nil {
		log.Error(err, "install running executable as boot slot")
	} else if adopted {
		log.Info("running executable installed as boot slot", "link", target.CurrentPath())
	}
	return ota.NewUpdater(client, target, power.Reboot, ota.Options{
		Device: config.DeviceInfo{
			Version:    config.BuildTime,
			DeviceType: config.DeviceType,
		},
		Interval: time.Duration(cfg.RequeryUpgradeTimeMinutes) * time.Minute,
	}, log), nil
}
