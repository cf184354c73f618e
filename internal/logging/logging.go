// Package logging builds the application's slog.Logger: records always go
// to an in-memory Buffer and, when a file is configured, are also written as
// JSON lines to a size-rotated file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Options configure New.
type Options struct {
	Level slog.Level
	// File, when non-empty, enables JSON file output.
	File       string
	MaxSizeMB  int
	MaxBackups int
	BufferSize int
}

// Logger bundles the configured logger with its sinks.
type Logger struct {
	*slog.Logger
	Buffer *Buffer
	file   io.Closer
}

// New builds a Logger. The caller must Close it.
func New(opts Options) (*Logger, error) {
	buf := NewBuffer(opts.BufferSize)
	handlers := []slog.Handler{buf.Handler(opts.Level)}

	var file io.Closer
	if opts.File != "" {
		w, err := OpenRotatingFile(opts.File, opts.MaxSizeMB, opts.MaxBackups)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		file = w
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level}))
	}

	return &Logger{
		Logger: slog.New(fanout(handlers)),
		Buffer: buf,
		file:   file,
	}, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel accepts debug, info, warn or error (case-insensitive); empty
// means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", s)
	}
}

// fanout dispatches each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
