// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes the desired logging setup.
type Config struct {
	Level  string
	Format string
	File   string
	Quiet  bool // drop the stderr sink; used while a TUI owns the terminal
}

// New builds a logger from cfg. Diagnostics go to stderr so the report on
// stdout stays clean; when a file path is set, log lines also go to a
// size-rotated file. The returned closer releases the file writer and is
// never nil.
func New(cfg Config) (*slog.Logger, io.Closer) {
	writer, closer := buildWriter(cfg)
	handler := buildHandler(writer, parseLevel(cfg.Level), cfg.Format)
	return slog.New(handler), closer
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildWriter(cfg Config) (io.Writer, io.Closer) {
	if cfg.File == "" {
		if cfg.Quiet {
			return io.Discard, nopCloser{}
		}
		return os.Stderr, nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    100, // MB
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	if cfg.Quiet {
		return lj, lj
	}
	return io.MultiWriter(os.Stderr, lj), lj
}

func buildHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
