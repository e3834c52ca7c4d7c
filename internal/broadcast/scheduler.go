package broadcast

import (
	"context"
	"time"

	"github.com/FrogCounters/boatboat/internal/net/proto"
	"github.com/FrogCounters/boatboat/internal/session"
	"github.com/FrogCounters/boatboat/internal/telemetry"
	"github.com/FrogCounters/boatboat/internal/world"
)

// DefaultInterval is the tick interval used when none is configured.
const DefaultInterval = 50 * time.Millisecond

// Source yields one consistent world snapshot and the number of projectiles
// purged while taking it.
type Source interface {
	Snapshot() (world.Snapshot, int)
}

// Sessions fans a payload out to every registered session.
type Sessions interface {
	Count() int
	Broadcast(payload []byte) (int, []session.SendFailure)
}

// Config tunes a Scheduler.
type Config struct {
	Interval time.Duration
	Logger   telemetry.Logger
	Metrics  telemetry.Metrics
	// Reap runs before every tick and closes idle or failed sessions.
	Reap func(now time.Time) int
}

// Scheduler pushes a world snapshot to every session at a fixed interval,
// independent of inbound traffic.
type Scheduler struct {
	interval time.Duration
	source   Source
	sessions Sessions
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	reap     func(now time.Time) int
}

// TickResult summarises one tick.
type TickResult struct {
	Skipped   bool
	Reaped    int
	Bytes     int
	Delivered int
	Failures  []session.SendFailure
}

// New constructs a scheduler.
func New(source Source, sessions Sessions, cfg Config) *Scheduler {
	s := &Scheduler{
		interval: cfg.Interval,
		source:   source,
		sessions: sessions,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		reap:     cfg.Reap,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.logger == nil {
		s.logger = telemetry.Discard
	}
	if s.metrics == nil {
		s.metrics = telemetry.Nop
	}
	return s
}

// Interval returns the tick interval in effect.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick reaps stale sessions, then serializes one snapshot and sends the same
// bytes to every session. With no sessions registered no snapshot is taken.
func (s *Scheduler) Tick(now time.Time) TickResult {
	var result TickResult
	if s.reap != nil {
		result.Reaped = s.reap(now)
	}

	if s.sessions.Count() == 0 {
		result.Skipped = true
		s.metrics.Add(telemetry.MetricBroadcastSkipped, 1)
		return result
	}

	snapshot, expired := s.source.Snapshot()
	if expired > 0 {
		s.metrics.Add(telemetry.MetricProjectilesExpired, uint64(expired))
	}
	payload, err := proto.EncodeStateUpdate(snapshot)
	if err != nil {
		s.logger.Printf("failed to marshal state update: %v", err)
		return result
	}

	result.Bytes = len(payload)
	result.Delivered, result.Failures = s.sessions.Broadcast(payload)

	s.metrics.Add(telemetry.MetricBroadcastTicks, 1)
	s.metrics.Store(telemetry.MetricBroadcastBytes, uint64(result.Bytes))
	if n := len(result.Failures); n > 0 {
		s.metrics.Add(telemetry.MetricBroadcastSendFailures, uint64(n))
		for _, failure := range result.Failures {
			s.logger.Printf("state update to %s failed: %v", failure.ID, failure.Err)
		}
	}
	return result
}
