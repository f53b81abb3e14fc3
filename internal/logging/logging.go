package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the daemon's log destination and verbosity.
type Options struct {
	Level string // debug, info, warn, error
	File  string // rotating log file; empty logs to stderr
}

// New builds the root logger. Output is human-readable when stderr is a
// terminal and JSON otherwise, so journald and file sinks stay
// machine-parseable.
func New(opts Options) logr.Logger {
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"

	var w io.Writer = os.Stderr
	switch {
	case opts.File != "":
		w = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	case stderrIsTerminal():
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).Level(parseLevel(opts.Level)).With().Timestamp().Logger()
	return zerologr.New(&zl)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "", "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
