package telemetry

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// Discard drops every message.
var Discard Logger = LoggerFunc(func(string, ...any) {})

// WrapZerolog adapts a zerolog logger to the Logger interface. Every line is
// emitted at level.
func WrapZerolog(logger zerolog.Logger, level zerolog.Level) Logger {
	return &zerologAdapter{logger: logger, level: level}
}

type zerologAdapter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (l *zerologAdapter) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.WithLevel(l.level).Msg(fmt.Sprintf(format, args...))
}

// Metrics exposes the telemetry methods required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Metric keys recorded by the server.
const (
	MetricBroadcastTicks        = "boatboat.broadcast.ticks"
	MetricBroadcastSkipped      = "boatboat.broadcast.skipped"
	MetricBroadcastBytes        = "boatboat.broadcast.bytes"
	MetricBroadcastSendFailures = "boatboat.broadcast.send_failures"
	MetricSessionsReaped        = "boatboat.sessions.reaped"
	MetricMessagesDropped       = "boatboat.messages.dropped"
	MetricCombatHits            = "boatboat.combat.hits"
	MetricProjectilesExpired    = "boatboat.projectiles.expired"
	MetricSessionsActive        = "boatboat.sessions.active"
)

const reasonSeparator = "|"

// WithReason qualifies a metric key with a reason attribute, e.g.
// WithReason(MetricMessagesDropped, "malformed").
func WithReason(key, reason string) string {
	return key + reasonSeparator + reason
}

// Nop discards every measurement.
var Nop Metrics = nopMetrics{}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}
