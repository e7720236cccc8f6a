// Package observe wires OpenTelemetry metrics and tracing into the roster
// service and provides the HTTP middleware that ties them to requests.
//
// Instruments are created through the OpenTelemetry Metrics API. [InitProvider]
// installs a Prometheus exporter bridge so the same numbers can be scraped
// from /metrics. [DefaultMetrics] returns a lazily built instance bound to the
// global meter provider; tests should call [NewMetrics] with their own
// provider instead.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for every roster instrument.
const meterName = "github.com/MrWong99/roster"

// Metrics holds the roster's metric instruments. The OTel types are safe for
// concurrent use.
type Metrics struct {
	// EffectsApplied counts effects that changed a character. Attributes:
	//   attribute.String("type", "stat"|"custom")
	EffectsApplied metric.Int64Counter

	// EffectsSkipped counts effects that were ignored. Attributes:
	//   attribute.String("reason", ...)
	EffectsSkipped metric.Int64Counter

	// Crafts counts craft attempts. Attributes:
	//   attribute.String("status", "ok"|"insufficient"|"error")
	Crafts metric.Int64Counter

	// Transfers counts item transfers between characters.
	Transfers metric.Int64Counter

	// BadgeEvaluations counts badge condition evaluations. Attributes:
	//   attribute.Bool("matched", ...)
	BadgeEvaluations metric.Int64Counter

	// ReplicationReloads counts roster replacements pulled from the shared
	// store.
	ReplicationReloads metric.Int64Counter

	// ToolCalls counts MCP tool invocations. Attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// Characters tracks the number of characters in the roster.
	Characters metric.Int64UpDownCounter

	// LiveClients tracks connected websocket clients.
	LiveClients metric.Int64UpDownCounter

	// PersistDuration tracks document save latency. Attributes:
	//   attribute.String("key", ...)
	PersistDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request latency. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds tuned for local storage
// round trips.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1,
}

// NewMetrics builds every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EffectsApplied, err = m.Int64Counter("roster.effects.applied",
		metric.WithDescription("Effects applied to characters by effect type."),
	); err != nil {
		return nil, err
	}
	if met.EffectsSkipped, err = m.Int64Counter("roster.effects.skipped",
		metric.WithDescription("Effects ignored during resolution by reason."),
	); err != nil {
		return nil, err
	}
	if met.Crafts, err = m.Int64Counter("roster.crafts",
		metric.WithDescription("Craft attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.Transfers, err = m.Int64Counter("roster.transfers",
		metric.WithDescription("Item transfers between characters."),
	); err != nil {
		return nil, err
	}
	if met.BadgeEvaluations, err = m.Int64Counter("roster.badge.evaluations",
		metric.WithDescription("Badge condition evaluations by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ReplicationReloads, err = m.Int64Counter("roster.replication.reloads",
		metric.WithDescription("Roster reloads pulled from the shared store."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("roster.tool.calls",
		metric.WithDescription("MCP tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}

	if met.Characters, err = m.Int64UpDownCounter("roster.characters",
		metric.WithDescription("Number of characters in the roster."),
	); err != nil {
		return nil, err
	}
	if met.LiveClients, err = m.Int64UpDownCounter("roster.live.clients",
		metric.WithDescription("Connected live-view websocket clients."),
	); err != nil {
		return nil, err
	}

	if met.PersistDuration, err = m.Float64Histogram("roster.persist.duration",
		metric.WithDescription("Latency of persisting a document."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("roster.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], created on first use
// from [otel.GetMeterProvider]. It panics if an instrument cannot be built.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordEffect counts one effect outcome. An empty reason means it applied.
func (m *Metrics) RecordEffect(ctx context.Context, typ, reason string) {
	if reason == "" {
		m.EffectsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("type", typ)))
		return
	}
	m.EffectsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCraft counts one craft attempt.
func (m *Metrics) RecordCraft(ctx context.Context, status string) {
	m.Crafts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordBadge counts one badge evaluation.
func (m *Metrics) RecordBadge(ctx context.Context, matched bool) {
	m.BadgeEvaluations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("matched", matched)))
}

// RecordToolCall counts one MCP tool invocation.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordPersist records how long saving key took.
func (m *Metrics) RecordPersist(ctx context.Context, key string, d time.Duration) {
	m.PersistDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("key", key)))
}
