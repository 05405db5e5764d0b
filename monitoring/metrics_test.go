package monitoring

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pushgate/pkg/response"
)

func accepted() *response.Response {
	return &response.Response{StatusCode: http.StatusOK}
}

func rejected(reason string) *response.Response {
	return &response.Response{StatusCode: http.StatusGone, Reason: reason}
}

func TestMetrics_SendsAndFailuresByTopic(t *testing.T) {
	m := NewMetrics()

	m.Sent("com.example.app")
	m.Sent("com.example.app")
	m.Sent("com.example.other")
	m.WriteFailure("com.example.app")

	assert.EqualValues(t, 3, m.TotalSent)
	assert.EqualValues(t, 1, m.TotalWriteFailures)
	assert.EqualValues(t, 2, m.SendsByTopic["com.example.app"])
	assert.EqualValues(t, 1, m.SendsByTopic["com.example.other"])
	assert.EqualValues(t, 1, m.FailuresByTopic["com.example.app"])
}

func TestMetrics_Acknowledged(t *testing.T) {
	m := NewMetrics()

	m.Acknowledged(accepted(), 10*time.Millisecond)
	m.Acknowledged(accepted(), 30*time.Millisecond)
	m.Acknowledged(rejected(response.ReasonUnregistered), 20*time.Millisecond)

	assert.EqualValues(t, 2, m.TotalAccepted)
	assert.EqualValues(t, 1, m.TotalRejected)
	assert.EqualValues(t, 1, m.RejectionsByReason[response.ReasonUnregistered])
	assert.Equal(t, 20*time.Millisecond, m.AvgAckLatency)
	assert.Equal(t, 30*time.Millisecond, m.MaxAckLatency)
}

func TestMetrics_AcceptRate(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 1.0, m.GetAcceptRate())

	m.Acknowledged(accepted(), time.Millisecond)
	m.Acknowledged(accepted(), time.Millisecond)
	m.Acknowledged(accepted(), time.Millisecond)
	m.Acknowledged(rejected(response.ReasonBadDeviceToken), time.Millisecond)

	assert.Equal(t, 0.75, m.GetAcceptRate())
}

func TestMetrics_ConnectionGauge(t *testing.T) {
	m := NewMetrics()

	m.ConnectionAdded()
	m.ConnectionAdded()
	m.ConnectionRemoved()
	m.ConnectionCreationFailed()

	assert.EqualValues(t, 1, m.OpenConnections)
	assert.EqualValues(t, 1, m.ConnectionFailures)
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.Sent("com.example.app")
	m.Acknowledged(accepted(), 5*time.Millisecond)
	m.ConnectionAdded()

	snapshot := m.GetSnapshot()

	assert.EqualValues(t, 1, snapshot["total_sent"])
	assert.EqualValues(t, 1, snapshot["total_accepted"])
	assert.EqualValues(t, 1, snapshot["open_connections"])

	// The snapshot copies the maps; mutating it must not touch the sink.
	sends, ok := snapshot["sends_by_topic"].(map[string]int64)
	require.True(t, ok)
	sends["com.example.app"] = 99
	assert.EqualValues(t, 1, m.SendsByTopic["com.example.app"])
}

func TestMetrics_ConcurrentUpdates(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Sent("com.example.app")
				m.Acknowledged(accepted(), time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1600, m.TotalSent)
	assert.EqualValues(t, 1600, m.TotalAccepted)
	assert.Equal(t, time.Millisecond, m.AvgAckLatency)
}
