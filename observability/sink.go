package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kart-io/pushgate/pkg/response"
)

// Sink exports client lifecycle events as OpenTelemetry instruments. It
// implements metrics.Sink.
type Sink struct {
	sent          metric.Int64Counter
	writeFailures metric.Int64Counter
	acknowledged  metric.Int64Counter
	ackDuration   metric.Float64Histogram
	connections   metric.Int64UpDownCounter
	connFailures  metric.Int64Counter
}

// NewSink builds the instrument set on the provider's meter.
func NewSink(tp *TelemetryProvider) (*Sink, error) {
	meter := tp.GetMeter()
	s := &Sink{}

	var err error

	s.sent, err = meter.Int64Counter(
		"pushgate_notifications_sent_total",
		metric.WithDescription("Total number of notifications written to the gateway"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sent counter: %w", err)
	}

	s.writeFailures, err = meter.Int64Counter(
		"pushgate_write_failures_total",
		metric.WithDescription("Total number of notifications that failed before acknowledgement"),
	)
	if err != nil {
		return nil, fmt.Errorf("create write_failures counter: %w", err)
	}

	s.acknowledged, err = meter.Int64Counter(
		"pushgate_notifications_acknowledged_total",
		metric.WithDescription("Total number of gateway verdicts received"),
	)
	if err != nil {
		return nil, fmt.Errorf("create acknowledged counter: %w", err)
	}

	s.ackDuration, err = meter.Float64Histogram(
		"pushgate_acknowledge_duration_seconds",
		metric.WithDescription("Time from send submission to gateway verdict"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create acknowledge_duration histogram: %w", err)
	}

	s.connections, err = meter.Int64UpDownCounter(
		"pushgate_open_connections",
		metric.WithDescription("Current number of open gateway connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("create open_connections counter: %w", err)
	}

	s.connFailures, err = meter.Int64Counter(
		"pushgate_connection_failures_total",
		metric.WithDescription("Total number of failed gateway connection attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("create connection_failures counter: %w", err)
	}

	return s, nil
}

// Sent records a write issued to the gateway.
func (s *Sink) Sent(topic string) {
	s.sent.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("topic", topic),
	))
}

// WriteFailure records a message that failed before acknowledgement.
func (s *Sink) WriteFailure(topic string) {
	s.writeFailures.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("topic", topic),
	))
}

// Acknowledged records a gateway verdict and its latency.
func (s *Sink) Acknowledged(resp *response.Response, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.Bool("accepted", resp.Accepted()),
		attribute.String("status", strconv.Itoa(resp.StatusCode)),
	)

	ctx := context.Background()
	s.acknowledged.Add(ctx, 1, attrs)
	s.ackDuration.Record(ctx, duration.Seconds(), attrs)
}

// ConnectionAdded records a connection opened by the pool.
func (s *Sink) ConnectionAdded() {
	s.connections.Add(context.Background(), 1)
}

// ConnectionRemoved records a connection closed by the pool.
func (s *Sink) ConnectionRemoved() {
	s.connections.Add(context.Background(), -1)
}

// ConnectionCreationFailed records a failed connection attempt.
func (s *Sink) ConnectionCreationFailed() {
	s.connFailures.Add(context.Background(), 1)
}
