// Package logging sets up the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const timeFormat = "060102 15:04:05.000"

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewHandler returns a tint handler writing to w. Color is only used when w
// is a terminal.
func NewHandler(w io.Writer, level slog.Level) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		AddSource:  level <= slog.LevelDebug,
		Level:      level,
		TimeFormat: timeFormat,
		NoColor:    !isTerminal(w),
	})
}

// Setup installs the default logger. Logs go to w (stderr in the CLI) so
// stdout stays reserved for the report and MCP frames.
func Setup(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(NewHandler(w, lvl)))
	slog.SetLogLoggerLevel(lvl)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
