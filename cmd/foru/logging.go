package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// levelRouter is a slog.Handler that routes records below ERROR to stdout
// and ERROR+ to stderr.
type levelRouter struct {
	min    slog.Level
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// newLevelRouter builds the handler pair for the given level and format
// ("text" or "json").
func newLevelRouter(stdout, stderr io.Writer, level, format string) (*levelRouter, error) {
	var minLevel slog.Level
	if err := minLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: minLevel}

	lr := &levelRouter{min: minLevel}
	switch strings.ToLower(format) {
	case "", "text":
		lr.stdout = slog.NewTextHandler(stdout, opts)
		lr.stderr = slog.NewTextHandler(stderr, opts)
	case "json":
		lr.stdout = slog.NewJSONHandler(stdout, opts)
		lr.stderr = slog.NewJSONHandler(stderr, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return lr, nil
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also written to that file. Returns a cleanup function that
// closes the log file (if opened).
func setupLogger(logPath, level, format string) (func(), error) {
	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler, err := newLevelRouter(stdoutW, stderrW, level, format)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}
