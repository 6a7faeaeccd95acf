// Package metrics holds the OpenTelemetry instruments of the gateway processes.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/ibs-source/edge-gateway"

// Metrics holds the counters recorded by ingest, telemetry and status tracking.
// A nil *Metrics records nothing.
type Metrics struct {
	ingestReceived        metric.Int64Counter
	ingestDuplicates      metric.Int64Counter
	ingestMissingID       metric.Int64Counter
	ingestAcks            metric.Int64Counter
	telemetryPublished    metric.Int64Counter
	telemetryFailures     metric.Int64Counter
	connectionTransitions metric.Int64Counter
}

// New creates all instruments from mp
func New(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.ingestReceived, "gateway.ingest.received", "Messages delivered to the ingest handler"},
		{&m.ingestDuplicates, "gateway.ingest.duplicates", "Messages whose id was already seen"},
		{&m.ingestMissingID, "gateway.ingest.missing_id", "Messages without a usable id"},
		{&m.ingestAcks, "gateway.ingest.acks", "Acknowledge attempts by outcome"},
		{&m.telemetryPublished, "gateway.telemetry.published", "Telemetry readings published"},
		{&m.telemetryFailures, "gateway.telemetry.failures", "Telemetry publish failures"},
		{&m.connectionTransitions, "gateway.connection.transitions", "Connection state transitions by state"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

// Noop returns instruments bound to a no-op provider
func Noop() *Metrics {
	m, _ := New(noop.NewMeterProvider())
	return m
}

// IngestReceived counts one delivered message
func (m *Metrics) IngestReceived(ctx context.Context) {
	if m == nil {
		return
	}
	m.ingestReceived.Add(ctx, 1)
}

// IngestDuplicate counts one message seen before
func (m *Metrics) IngestDuplicate(ctx context.Context) {
	if m == nil {
		return
	}
	m.ingestDuplicates.Add(ctx, 1)
}

// IngestMissingID counts one unidentified message
func (m *Metrics) IngestMissingID(ctx context.Context) {
	if m == nil {
		return
	}
	m.ingestMissingID.Add(ctx, 1)
}

// IngestAck counts one acknowledge attempt
func (m *Metrics) IngestAck(ctx context.Context, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ingestAcks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// TelemetryPublished counts one published reading
func (m *Metrics) TelemetryPublished(ctx context.Context) {
	if m == nil {
		return
	}
	m.telemetryPublished.Add(ctx, 1)
}

// TelemetryFailure counts one failed publish
func (m *Metrics) TelemetryFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.telemetryFailures.Add(ctx, 1)
}

// ConnectionTransition counts one transition into state
func (m *Metrics) ConnectionTransition(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.connectionTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
