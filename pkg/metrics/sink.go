// Package metrics defines the observer capability for client lifecycle
// events.
package metrics

import (
	"time"

	"github.com/kart-io/pushgate/pkg/response"
)

// Sink receives message-level and connection-level lifecycle events from a
// client. Implementations must be safe for concurrent use; events arrive on
// dispatch goroutines. A sink that panics is isolated by the client and
// cannot stall message completion or shutdown, but implementations should
// still avoid blocking inside callbacks.
type Sink interface {
	// WriteFailure is called when a message fails at any stage before
	// acknowledgement, attributed to the message's topic.
	WriteFailure(topic string)

	// Sent is called when a write has been issued to the gateway. It is an
	// optimistic signal: the gateway's verdict arrives separately through
	// Acknowledged.
	Sent(topic string)

	// Acknowledged is called when the gateway accepts or rejects a message,
	// with the elapsed time since the send was submitted.
	Acknowledged(resp *response.Response, duration time.Duration)

	// ConnectionAdded is called when the pool opens a new connection.
	ConnectionAdded()

	// ConnectionRemoved is called when the pool closes a connection.
	ConnectionRemoved()

	// ConnectionCreationFailed is called when the pool fails to open a
	// connection.
	ConnectionCreationFailed()
}

// noopSink discards every event.
type noopSink struct{}

func (noopSink) WriteFailure(string)                            {}
func (noopSink) Sent(string)                                    {}
func (noopSink) Acknowledged(*response.Response, time.Duration) {}
func (noopSink) ConnectionAdded()                               {}
func (noopSink) ConnectionRemoved()                             {}
func (noopSink) ConnectionCreationFailed()                      {}

// Noop is the process-wide default sink. It holds no state and costs a
// virtual dispatch per event.
var Noop Sink = noopSink{}
