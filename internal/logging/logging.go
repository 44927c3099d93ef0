// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, console format and an optional rotating file.
type Options struct {
	Level  string // debug|info|warn|error|fatal|panic
	Pretty bool   // human-readable console output instead of JSON
	File   string // when set, logs are also written here with rotation

	// Rotation; zero values use lumberjack's defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup installs the global logger and returns a closer for the log file.
// Console output goes to stderr so CLI reports on stdout stay clean.
func Setup(opts Options) io.Closer {
	SetLogLevel(opts.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var console io.Writer = os.Stderr
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	w := console
	if f := strings.TrimSpace(opts.File); f != "" {
		lj := &lumberjack.Logger{
			Filename:   f,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(console, lj)
		closer = lj
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return closer
}

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
