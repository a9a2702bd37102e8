package utils

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

type LogSeverity uint8

const (
	LogDebug LogSeverity = iota + 1
	LogInfo
	LogWarning
	LogError
)

var logMap = map[LogSeverity]slog.Level{
	LogDebug:   slog.LevelDebug,
	LogInfo:    slog.LevelInfo,
	LogWarning: slog.LevelWarn,
	LogError:   slog.LevelError,
}

// NewLogger returns new slog ref writing to stderr
func NewLogger(severity LogSeverity) *slog.Logger {
	return NewLoggerTo(os.Stderr, severity)
}

// NewLoggerTo returns new slog ref writing to w. Colors are only used
// when w is a terminal.
func NewLoggerTo(w io.Writer, severity LogSeverity) *slog.Logger {

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      GetlogLevel(severity),
		AddSource:  severity == LogDebug,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))

	return logger
}

// GetlogLevel gets 'slog' level based on severity specified by user
func GetlogLevel(s LogSeverity) slog.Level {

	val, ok := logMap[s]
	if !ok {
		// default logger is Info
		return logMap[LogInfo]
	}

	return val
}
