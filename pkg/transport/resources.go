package transport

import (
	"context"

	"golang.org/x/net/http2"
)

// Resources holds the HTTP/2 transport shared by every connection built on
// it. A single Resources instance may back many clients; when it does, the
// caller owns its lifetime and the clients must not shut it down.
type Resources struct {
	transport *http2.Transport
}

// NewResources creates a resource set with its own HTTP/2 transport.
func NewResources() *Resources {
	return &Resources{
		transport: &http2.Transport{},
	}
}

// Transport returns the shared HTTP/2 transport.
func (r *Resources) Transport() *http2.Transport {
	return r.transport
}

// ShutdownGracefully tears the resource set down. Pooled gateway
// connections are owned and closed by their pool, not by the transport, so
// this only releases idle state the transport holds on its own. It is the
// single teardown point for the set's owner once every client built on it
// has closed.
func (r *Resources) ShutdownGracefully(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.transport.CloseIdleConnections()
	return nil
}
