// Package rlog provides the engine's structured logging setup: a
// log/slog JSON logger backed by an optional rotating file writer.
package rlog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls Setup.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", or "error".
	Level string
	// FilePath is where logs are written. Empty disables file logging.
	FilePath string
	// MaxSizeMB is the rotation threshold; 0 disables rotation.
	MaxSizeMB int
	// MaxFiles caps how many rotated copies are kept; 0 keeps them all.
	MaxFiles int
	// WriteToStderr additionally writes every record to stderr.
	WriteToStderr bool
}

// Default returns a Config writing info-level JSON logs to stderr only.
func Default() Config {
	return Config{Level: "info", WriteToStderr: true}
}

// Setup builds a *slog.Logger per cfg and returns it along with a cleanup
// function that closes any opened log file. Callers must call cleanup
// when done logging.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	var closer func() error

	if cfg.FilePath != "" {
		rw, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, rw)
		closer = rw.Close
	}
	if cfg.WriteToStderr || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	var output io.Writer
	if len(writers) == 1 {
		output = writers[0]
	} else {
		output = io.MultiWriter(writers...)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler)

	cleanup := func() {
		if closer != nil {
			_ = closer()
		}
	}
	return logger, cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
