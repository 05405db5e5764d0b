// Package monitoring provides an in-process aggregate metrics sink.
package monitoring

import (
	"sync"
	"time"

	"github.com/kart-io/pushgate/pkg/response"
)

// Metrics aggregates client lifecycle events into counters suitable for a
// health endpoint or periodic log line. It implements metrics.Sink.
type Metrics struct {
	mu sync.RWMutex

	TotalSent          int64            `json:"total_sent"`
	TotalAccepted      int64            `json:"total_accepted"`
	TotalRejected      int64            `json:"total_rejected"`
	TotalWriteFailures int64            `json:"total_write_failures"`
	SendsByTopic       map[string]int64 `json:"sends_by_topic"`
	FailuresByTopic    map[string]int64 `json:"failures_by_topic"`
	RejectionsByReason map[string]int64 `json:"rejections_by_reason"`

	AvgAckLatency time.Duration `json:"avg_ack_latency"`
	MaxAckLatency time.Duration `json:"max_ack_latency"`

	OpenConnections    int64 `json:"open_connections"`
	ConnectionFailures int64 `json:"connection_failures"`

	StartTime time.Time `json:"start_time"`
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		SendsByTopic:       make(map[string]int64),
		FailuresByTopic:    make(map[string]int64),
		RejectionsByReason: make(map[string]int64),
		StartTime:          time.Now(),
	}
}

// Sent records a write issued to the gateway.
func (m *Metrics) Sent(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalSent++
	m.SendsByTopic[topic]++
}

// WriteFailure records a message that failed before acknowledgement.
func (m *Metrics) WriteFailure(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalWriteFailures++
	m.FailuresByTopic[topic]++
}

// Acknowledged records a gateway verdict and its latency.
func (m *Metrics) Acknowledged(resp *response.Response, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if resp.Accepted() {
		m.TotalAccepted++
	} else {
		m.TotalRejected++
		m.RejectionsByReason[resp.Reason]++
	}

	total := m.TotalAccepted + m.TotalRejected
	m.AvgAckLatency = time.Duration((int64(m.AvgAckLatency)*(total-1) + int64(duration)) / total)
	if duration > m.MaxAckLatency {
		m.MaxAckLatency = duration
	}
}

// ConnectionAdded records a connection opened by the pool.
func (m *Metrics) ConnectionAdded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenConnections++
}

// ConnectionRemoved records a connection closed by the pool.
func (m *Metrics) ConnectionRemoved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenConnections--
}

// ConnectionCreationFailed records a failed connection attempt.
func (m *Metrics) ConnectionCreationFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectionFailures++
}

// GetAcceptRate returns the share of acknowledged messages the gateway
// accepted.
func (m *Metrics) GetAcceptRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := m.TotalAccepted + m.TotalRejected
	if total == 0 {
		return 1.0
	}
	return float64(m.TotalAccepted) / float64(total)
}

// GetUptime returns the uptime since metrics started
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// GetSnapshot returns a complete snapshot of current metrics
func (m *Metrics) GetSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sends := make(map[string]int64, len(m.SendsByTopic))
	for topic, n := range m.SendsByTopic {
		sends[topic] = n
	}
	failures := make(map[string]int64, len(m.FailuresByTopic))
	for topic, n := range m.FailuresByTopic {
		failures[topic] = n
	}
	rejections := make(map[string]int64, len(m.RejectionsByReason))
	for reason, n := range m.RejectionsByReason {
		rejections[reason] = n
	}

	return map[string]interface{}{
		"total_sent":           m.TotalSent,
		"total_accepted":       m.TotalAccepted,
		"total_rejected":       m.TotalRejected,
		"total_write_failures": m.TotalWriteFailures,
		"sends_by_topic":       sends,
		"failures_by_topic":    failures,
		"rejections_by_reason": rejections,
		"avg_ack_latency":      m.AvgAckLatency.String(),
		"max_ack_latency":      m.MaxAckLatency.String(),
		"open_connections":     m.OpenConnections,
		"connection_failures":  m.ConnectionFailures,
		"uptime":               m.GetUptime().String(),
	}
}
