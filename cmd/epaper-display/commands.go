package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/epaper-display/internal/board"
	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/screen"
	"github.com/sweeney/epaper-display/internal/sensor"
)

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Read the sensors and battery once and print them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := config.LoadOptionsFromViper(v)
		if err != nil {
			return err
		}
		b, err := board.OpenShared(o, log.WithName("board"))
		if err != nil {
			return fmt.Errorf("open board: %w", err)
		}
		defer b.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		start := time.Now()
		snap, err := b.ReadAllSensors(ctx)
		if err != nil {
			return err
		}
		log.V(1).Info("sensors read", "took", since(start))
		printSnapshot(cmd.OutOrStdout(), snap)
		return nil
	},
}

func printSnapshot(w io.Writer, s sensor.Snapshot) {
	fmt.Fprintf(w, "temperature: %.1f°C\n", s.Celsius())
	fmt.Fprintf(w, "humidity:    %.1f%%\n", s.HumidityPercent())
	if s.Pressure != 0 {
		fmt.Fprintf(w, "pressure:    %.1f hPa\n", s.HectoPascal())
	}
	fmt.Fprintf(w, "battery:     %s\n", s.Battery)
	fmt.Fprintf(w, "charging:    %t\n", s.Charging)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or reset the device config on the data root",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the device config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.NewStore(v.GetString("data-root"), log.WithName("config"))
		cfg, err := store.Read()
		if errors.Is(err, config.ErrNotFound) {
			log.Info("no config file, showing defaults", "path", store.Path())
			cfg = config.Default()
		} else if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), cfg)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Overwrite the device config with the factory defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := config.NewStore(v.GetString("data-root"), log.WithName("config"))
		cfg, err := store.Rebuild()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", store.Path())
		return writeJSON(cmd.OutOrStdout(), cfg)
	},
}

func writeJSON(w io.Writer, val any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(val)
}

var previewCmd = &cobra.Command{
	Use:   "preview PAGE",
	Short: "Draw a page on this terminal",
	Long: `Draw a page on this terminal with the saved device config.
PAGE is a page name such as Home, Sensor, FullTime or FullWeather.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := page.Parse(args[0])
		if err != nil {
			return err
		}
		store := config.NewStore(v.GetString("data-root"), log.WithName("config"))
		cfg, err := store.Read()
		if errors.Is(err, config.ErrNotFound) {
			cfg = config.Default()
		} else if err != nil {
			return err
		}
		return preview(cmd.OutOrStdout(), v.GetString("data-root"), cfg, p, sensor.Snapshot{Time: time.Now()})
	},
}

func preview(w io.Writer, dataRoot string, cfg config.DeviceConfig, p page.ActivePage, snap sensor.Snapshot) error {
	r, err := screen.NewRenderer(dataRoot, func() config.DeviceConfig { return cfg })
	if err != nil {
		return err
	}
	t := screen.NewTask(screen.NewTerminal(w), r, log.WithName("screen"))
	if err := t.Handle(screen.UpdateSensorSnapshot{Data: snap}); err != nil {
		return err
	}
	return t.Handle(screen.Refresh{Page: p})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the firmware version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.DeviceType, config.BuildTime)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configResetCmd)
}
