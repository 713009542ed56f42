package tracing

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcomes recorded on MCP metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeToolError = "tool_error"
)

// Metrics records Prometheus-compatible metrics for MCP traffic.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	meter metric.Meter

	// Counters
	connectsTotal     metric.Int64Counter
	toolCallsTotal    metric.Int64Counter
	catalogPagesTotal metric.Int64Counter
	itemsTotal        metric.Int64Counter

	// Histograms
	toolCallDuration metric.Float64Histogram

	// Gauges
	activeSessions atomic.Int64
}

// NewMetrics creates the instruments on the given meter provider.
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	m := &Metrics{meter: meterProvider.Meter("forest-mcp")}

	var err error

	m.connectsTotal, err = m.meter.Int64Counter(
		"forest_mcp_connects_total",
		metric.WithDescription("Total number of MCP session attempts by outcome"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	m.toolCallsTotal, err = m.meter.Int64Counter(
		"forest_mcp_tool_calls_total",
		metric.WithDescription("Total number of MCP tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.catalogPagesTotal, err = m.meter.Int64Counter(
		"forest_mcp_catalog_pages_total",
		metric.WithDescription("Total number of tools/list pages fetched"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	m.itemsTotal, err = m.meter.Int64Counter(
		"forest_mcp_items_total",
		metric.WithDescription("Total number of workflow items processed"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	m.toolCallDuration, err = m.meter.Float64Histogram(
		"forest_mcp_tool_call_duration_seconds",
		metric.WithDescription("MCP tool call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = m.meter.Int64ObservableGauge(
		"forest_mcp_active_sessions",
		metric.WithDescription("Number of open MCP sessions"),
		metric.WithUnit("{session}"),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			observer.Observe(m.activeSessions.Load())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordConnect records a session attempt. outcome is "success" or the
// connection error kind.
func (m *Metrics) RecordConnect(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.connectsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == OutcomeSuccess {
		m.activeSessions.Add(1)
	}
}

// RecordSessionClosed decrements the active session gauge.
func (m *Metrics) RecordSessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Add(-1)
}

// RecordToolCall records one tools/call round trip.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	)
	m.toolCallsTotal.Add(ctx, 1, attrs)
	m.toolCallDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCatalogPage records one tools/list page.
func (m *Metrics) RecordCatalogPage(ctx context.Context) {
	if m == nil {
		return
	}
	m.catalogPagesTotal.Add(ctx, 1)
}

// RecordItem records a processed workflow item.
func (m *Metrics) RecordItem(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.itemsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
