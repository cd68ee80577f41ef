// Package logging configures slog for the host and adapts it to the
// services units call back into.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/scoobymooch/lightgen/unit"
)

func ResolveLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// New returns a text logger writing to w at the named level.
func New(w io.Writer, level string) (*slog.Logger, error) {
	l, err := ResolveLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// Init installs a stderr logger as the slog default.
func Init(level string) error {
	logger, err := New(os.Stderr, level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// SlogLevel maps a unit log level onto slog's scale.
func SlogLevel(l unit.LogLevel) slog.Level {
	switch {
	case l < unit.Debug:
		return slog.LevelDebug - 4
	case l < unit.Info:
		return slog.LevelDebug
	case l < unit.Warn:
		return slog.LevelInfo
	case l < unit.Error:
		return slog.LevelWarn
	case l < unit.Critical:
		return slog.LevelError
	}
	return slog.LevelError + 4
}

// Host implements unit.Host: logs go to a slog logger tagged with the unit
// name, and resources are read from a static directory.
type Host struct {
	logger    *slog.Logger
	staticDir string
}

// NewHost returns a Host for the named unit. An empty staticDir bundles no
// resources.
func NewHost(logger *slog.Logger, unitName, staticDir string) *Host {
	return &Host{logger: logger.With("unit", unitName), staticDir: staticDir}
}

func (h *Host) Log(level unit.LogLevel, text string) {
	h.logger.Log(context.Background(), SlogLevel(level), text)
}

// Resource reads name from the static directory. Names may not escape it.
func (h *Host) Resource(name string) ([]byte, error) {
	if h.staticDir == "" {
		return nil, fmt.Errorf("%s: %w", name, unit.ErrNoResource)
	}
	if strings.Contains(name, "..") {
		return nil, fmt.Errorf("resource %q escapes the static directory", name)
	}
	b, err := os.ReadFile(filepath.Join(h.staticDir, filepath.Clean("/"+name)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", name, unit.ErrNoResource)
	}
	return b, err
}
