package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Options selects the sinks a logger writes to.
type Options struct {
	Level          string
	File           string
	GraylogEnabled bool
	GraylogAddress string
	// Console defaults to os.Stdout.
	Console io.Writer
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to
// info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Sinks owns the files and network writers behind a logger.
type Sinks struct {
	closers []io.Closer
}

// Close releases every sink.
func (s *Sinks) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// New builds a logger writing colored console output, plus an optional
// uncolored log file and an optional Graylog GELF endpoint.
func New(opts Options) (zerolog.Logger, *Sinks, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	sinks := &Sinks{}
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
	}

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		sinks.closers = append(sinks.closers, file)
		writers = append(writers, zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true})
	}

	if opts.GraylogEnabled {
		gelfWriter, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			sinks.Close()
			return zerolog.Nop(), nil, fmt.Errorf("connect graylog %s: %w", opts.GraylogAddress, err)
		}
		sinks.closers = append(sinks.closers, gelfWriter)
		writers = append(writers, gelfWriter)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()
	return logger, sinks, nil
}

// Component derives a sub-logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// Sampled limits a chatty logger to a burst of 5 lines per 10 seconds, then 1
// in 100.
func Sampled(logger zerolog.Logger) zerolog.Logger {
	return logger.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
