// Package hlog builds the daemon's logr.Logger on top of zerolog.
//
// On an interactive terminal logs are pretty-printed to stdout. Otherwise they
// are written as JSON lines to a size-rotated file.
package hlog

import (
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Verbose bool   // info level
	Debug   bool   // debug level, enables V(1)
	File    string // rotated log file used when stdout is not a terminal
	Stderr  bool   // force console output even without a terminal
}

// DefaultFile is where the daemon logs when it runs under a service manager.
const DefaultFile = "/var/log/epaper-display.log"

// New returns a logger configured from opts.
func New(opts Options) logr.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"

	var w io.Writer
	console := opts.Stderr || IsTerminal()
	if console {
		w = zerolog.ConsoleWriter{
			Out:        colorable.NewColorableStdout(),
			NoColor:    !isColorTerminal(),
			TimeFormat: time.RFC3339,
		}
	} else {
		file := opts.File
		if file == "" {
			file = DefaultFile
		}
		w = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    5, // MB
			MaxBackups: 3,
			MaxAge:     14,
		}
	}

	level := parseLevel(opts.Verbose, opts.Debug)
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return zerologr.New(&zl)
}

func parseLevel(verbose, debug bool) zerolog.Level {
	switch {
	case debug:
		return zerolog.DebugLevel
	case verbose:
		return zerolog.InfoLevel
	default:
		return zerolog.WarnLevel
	}
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isColorTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return true
}
