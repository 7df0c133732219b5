// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides the process-wide structured logger. Packages grab a
// scoped logger once at init via WithContext and log key/value pairs; Init
// swaps the shared handler underneath, so loggers created before it still
// follow the configured writer and verbosity.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Logger is the structured logger handed out to packages.
type Logger = *slog.Logger

var (
	level = new(slog.LevelVar)
	rootH = newSwapHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	root  = slog.New(rootH)
)

// WithContext returns a logger carrying the given key/value context.
func WithContext(args ...any) Logger {
	return root.With(args...)
}

// Init replaces the shared handler, writing to w at the given verbosity.
// Verbosity is one of debug|info|warn|error. Terminal output is detected
// through the writer's fd when it is an *os.File.
func Init(w io.Writer, verbosity string) error {
	lvl, err := parseLevel(verbosity)
	if err != nil {
		return err
	}
	level.Set(lvl)

	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		// drop the date on interactive terminals
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Value = slog.StringValue(a.Value.Time().Format("15:04:05.000"))
			}
			return a
		}
	}
	rootH.Swap(slog.NewTextHandler(w, opts))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	var lvl slog.Level
	return lvl, lvl.UnmarshalText([]byte(s))
}
