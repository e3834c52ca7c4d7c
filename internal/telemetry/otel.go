package telemetry

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/FrogCounters/boatboat"

var descriptions = map[string]string{
	MetricBroadcastTicks:        "Broadcast ticks that serialized and sent a snapshot",
	MetricBroadcastSkipped:      "Broadcast ticks skipped because no session was registered",
	MetricBroadcastBytes:        "Snapshot bytes serialized per tick",
	MetricBroadcastSendFailures: "Per-session snapshot sends that failed",
	MetricSessionsReaped:        "Sessions closed by the idle or failed-send reaper",
	MetricMessagesDropped:       "Inbound messages dropped without routing",
	MetricCombatHits:            "Projectiles that struck a ship",
	MetricProjectilesExpired:    "Projectiles purged after their time-to-live",
	MetricSessionsActive:        "Currently registered sessions",
}

// OtelMetrics records measurements on OpenTelemetry instruments created from
// the global meter provider and mirrors them into Counters for diagnostics.
type OtelMetrics struct {
	meter  metric.Meter
	mirror *Counters

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
	gauges   map[string]metric.Int64Gauge
}

// NewOtelMetrics builds a Metrics backed by the global meter provider. A nil
// mirror is allowed.
func NewOtelMetrics(mirror *Counters) *OtelMetrics {
	return &OtelMetrics{
		meter:    otel.Meter(instrumentationName),
		mirror:   mirror,
		counters: make(map[string]metric.Int64Counter),
		gauges:   make(map[string]metric.Int64Gauge),
	}
}

// Add increments the counter named by key.
func (m *OtelMetrics) Add(key string, delta uint64) {
	if m == nil {
		return
	}
	m.mirror.Add(key, delta)
	name, attrs := splitKey(key)
	counter, ok := m.counter(name)
	if !ok {
		return
	}
	counter.Add(context.Background(), int64(delta), metric.WithAttributes(attrs...))
}

// Store records the latest value of the gauge named by key.
func (m *OtelMetrics) Store(key string, value uint64) {
	if m == nil {
		return
	}
	m.mirror.Store(key, value)
	name, attrs := splitKey(key)
	gauge, ok := m.gauge(name)
	if !ok {
		return
	}
	gauge.Record(context.Background(), int64(value), metric.WithAttributes(attrs...))
}

// ObserveSessions registers an asynchronous gauge reporting the number of
// registered sessions at collection time.
func (m *OtelMetrics) ObserveSessions(count func() int) error {
	gauge, err := m.meter.Int64ObservableGauge(
		MetricSessionsActive,
		metric.WithDescription(descriptions[MetricSessionsActive]),
	)
	if err != nil {
		return err
	}
	_, err = m.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(gauge, int64(count()))
			return nil
		},
		gauge,
	)
	return err
}

func (m *OtelMetrics) counter(name string) (metric.Int64Counter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c, true
	}
	c, err := m.meter.Int64Counter(name, metric.WithDescription(descriptions[name]))
	if err != nil {
		return nil, false
	}
	m.counters[name] = c
	return c, true
}

func (m *OtelMetrics) gauge(name string) (metric.Int64Gauge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g, true
	}
	g, err := m.meter.Int64Gauge(name, metric.WithDescription(descriptions[name]))
	if err != nil {
		return nil, false
	}
	m.gauges[name] = g
	return g, true
}

func splitKey(key string) (string, []attribute.KeyValue) {
	name, reason, found := strings.Cut(key, reasonSeparator)
	if !found {
		return name, nil
	}
	return name, []attribute.KeyValue{attribute.String("reason", reason)}
}
