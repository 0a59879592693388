// Package logging configures the process-wide slog logger. Configuration
// state lives in a caller-owned Setup value instead of a package-level flag,
// so tests and multiple logical applications in one process can each hold
// their own.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fclairamb/expkit/internal/paths"
)

// Format represents the log output format.
type Format string

const (
	// FormatText is the human-readable text format (default).
	FormatText Format = "text"
	// FormatJSON is the JSON-formatted structured logs.
	FormatJSON Format = "json"
)

// Rotation settings for the optional log file.
const (
	fileMaxSizeMB  = 500
	fileMaxBackups = 10
)

// Options controls how logging is configured.
type Options struct {
	Level     slog.Level
	Format    Format
	File      string // optional rotating log file; parents are created
	AddSource bool
}

// Setup owns the one-shot configuration state. The zero value is ready to
// use; Configure is a no-op once it has succeeded, until Reset re-arms it.
type Setup struct {
	mu         sync.Mutex
	configured bool
	sink       *lumberjack.Logger
}

// Configure installs the global slog logger according to opts and returns
// it. Repeated calls after a successful one return the current default
// logger unchanged.
func (s *Setup) Configure(opts Options) (*slog.Logger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.configured {
		return slog.Default(), nil
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	handlers := []slog.Handler{newHandler(os.Stderr, opts.Format, handlerOpts)}

	if opts.File != "" {
		logPath, err := paths.NormalizeFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("normalize log file: %w", err)
		}

		sink := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			Compress:   true,
		}
		s.sink = sink
		handlers = append(handlers, newHandler(sink, opts.Format, handlerOpts))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = newFanoutHandler(handlers...)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	s.configured = true

	if opts.File != "" {
		logger.Info("logging configured", "file", s.sink.Filename, "level", opts.Level)
	}

	return logger, nil
}

// Configured reports whether Configure has already succeeded.
func (s *Setup) Configured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured
}

// Reset re-arms the setup so the next Configure call takes effect again,
// closing the rotating file sink if one was opened.
func (s *Setup) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configured = false

	if s.sink != nil {
		sink := s.sink
		s.sink = nil
		if err := sink.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
	}
	return nil
}

// ParseFormat returns the Format for a string value, defaulting to text.
// The second return reports whether the value was recognized.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatJSON:
		return FormatJSON, true
	case FormatText, "":
		return FormatText, true
	default:
		return FormatText, false
	}
}
