// Package obslog wires structured logging for the storage core: a
// log/slog JSON logger writing to stderr, and additionally to a
// lumberjack-rotated file when a file path is configured.
package obslog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger Init constructs.
type Options struct {
	Level      slog.Level
	FilePath   string // empty writes to stderr only
	MaxSizeMB  int
	MaxBackups int
}

// Init constructs the process-wide slog.Logger and sets it as the default,
// returning it for callers that prefer an explicit reference.
func Init(opts Options) *slog.Logger {
	var w io.Writer = os.Stderr
	if opts.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, lj)
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
