// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"evalgo.org/gridmapper/internal/config"
)

// New returns a logrus logger configured by cfg. Output is stdout, stderr
// or a file path opened for appending.
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	out, err := output(cfg.Output)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(out)

	return logger, nil
}

// Close releases the log file opened by New. Standard streams stay open.
func Close(logger *logrus.Logger) error {
	if logger.Out == os.Stdout || logger.Out == os.Stderr {
		return nil
	}
	if c, ok := logger.Out.(io.Closer); ok {
		logger.SetOutput(io.Discard)
		return c.Close()
	}
	return nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func output(dest string) (io.Writer, error) {
	switch strings.ToLower(dest) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, nil
	}
}
