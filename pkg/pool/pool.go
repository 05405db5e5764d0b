// Package pool provides the connection pool the client dispatches through.
//
// Connections are multiplexed: a connection is released back to the pool
// immediately after a write has been issued on it, while the gateway's
// verdict is still outstanding. The pool therefore bounds concurrent
// connection count, not concurrent in-flight messages.
package pool

import (
	"context"
	"sync"

	"github.com/kart-io/pushgate/pkg/errors"
	"github.com/kart-io/pushgate/pkg/logger"
	"github.com/kart-io/pushgate/pkg/message"
	"github.com/kart-io/pushgate/pkg/result"
)

// Connection is a single transport connection to the gateway.
type Connection interface {
	// Write asynchronously issues msg on the connection. The transport
	// layer eventually completes the handle with the gateway's response or
	// a write error. A non-nil return reports a synchronous issue failure;
	// even then the transport remains responsible for completing the
	// handle through its own failure path.
	Write(msg *message.Message, handle *result.Handle) error

	// Close drains in-flight writes and closes the connection.
	Close(ctx context.Context) error
}

// Factory opens new connections on demand.
type Factory interface {
	NewConnection(ctx context.Context) (Connection, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Connection, error)

// NewConnection calls f.
func (f FactoryFunc) NewConnection(ctx context.Context) (Connection, error) {
	return f(ctx)
}

// MetricsListener observes connection lifecycle events at the pool level.
type MetricsListener interface {
	ConnectionAdded()
	ConnectionRemoved()
	ConnectionCreationFailed()
}

type noopListener struct{}

func (noopListener) ConnectionAdded()          {}
func (noopListener) ConnectionRemoved()        {}
func (noopListener) ConnectionCreationFailed() {}

// NoopListener discards all pool events.
var NoopListener MetricsListener = noopListener{}

// Config controls pool sizing.
type Config struct {
	// Capacity is the maximum number of open connections.
	Capacity int

	// MaxPending bounds acquisitions queued behind a saturated pool.
	// Acquires beyond the bound fail fast with POOL_EXHAUSTED.
	MaxPending int
}

// Default sizing. A single multiplexed connection carries many concurrent
// streams, so one connection is a reasonable starting point.
const (
	DefaultCapacity   = 1
	DefaultMaxPending = 1024
)

// Pool hands out pooled connections, opening new ones through its factory
// until it reaches capacity.
type Pool struct {
	factory  Factory
	listener MetricsListener
	log      logger.Logger

	capacity   int
	maxPending int

	mu      sync.Mutex
	idle    []Connection
	conns   map[Connection]struct{}
	total   int
	waiters []chan Connection
	closed  bool

	drained  chan struct{}
	closeErr error
}

// New creates a pool backed by factory.
func New(factory Factory, cfg Config, listener MetricsListener, log logger.Logger) *Pool {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if listener == nil {
		listener = NoopListener
	}
	if log == nil {
		log = logger.Discard
	}

	return &Pool{
		factory:    factory,
		listener:   listener,
		log:        log,
		capacity:   cfg.Capacity,
		maxPending: cfg.MaxPending,
		conns:      make(map[Connection]struct{}),
		drained:    make(chan struct{}),
	}
}

// Acquire returns a pooled connection, opening a new one if the pool is
// below capacity. When the pool is saturated the acquiring goroutine waits
// until a connection is released or ctx is done; at most MaxPending
// acquisitions may wait at once.
func (p *Pool) Acquire(ctx context.Context) (Connection, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, errors.New(errors.ErrPoolClosed, "connection pool has been closed")
	}

	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return conn, nil
	}

	if p.total < p.capacity {
		p.total++
		p.mu.Unlock()
		return p.open(ctx)
	}

	if len(p.waiters) >= p.maxPending {
		p.mu.Unlock()
		return nil, errors.Newf(errors.ErrPoolExhausted,
			"pool saturated with %d pending acquisitions", p.maxPending)
	}

	w := make(chan Connection, 1)
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case conn, ok := <-w:
		if !ok {
			return nil, errors.New(errors.ErrPoolClosed, "connection pool closed while waiting")
		}
		return conn, nil
	case <-ctx.Done():
		return nil, p.abandonWaiter(w, ctx.Err())
	}
}

// open creates a connection outside the pool lock; the caller has already
// reserved a capacity slot by incrementing total.
func (p *Pool) open(ctx context.Context) (Connection, error) {
	conn, err := p.factory.NewConnection(ctx)
	if err != nil {
		p.mu.Lock()
		p.total--
		p.mu.Unlock()

		p.listener.ConnectionCreationFailed()
		p.log.Warn("connection creation failed", "error", err)
		return nil, errors.Wrap(errors.ErrConnectionFailed, "failed to open gateway connection", err)
	}

	p.mu.Lock()
	if p.closed {
		p.total--
		p.mu.Unlock()
		_ = conn.Close(ctx)
		return nil, errors.New(errors.ErrPoolClosed, "connection pool has been closed")
	}
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	p.listener.ConnectionAdded()
	p.log.Debug("connection added", "total", p.Stats().Open)
	return conn, nil
}

// abandonWaiter removes w from the waiter queue after ctx fired. A release
// may have handed w a connection concurrently; if so the connection is put
// back rather than leaked.
func (p *Pool) abandonWaiter(w chan Connection, cause error) error {
	p.mu.Lock()
	for i, queued := range p.waiters {
		if queued == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return errors.Wrap(errors.ErrAcquireTimeout, "connection acquisition timed out", cause)
		}
	}
	p.mu.Unlock()

	// Not queued anymore: a Release already popped w and will send on it,
	// or Close will close it. Either way something arrives on w; the send
	// may still be in flight, so the receive must block for it.
	if conn, ok := <-w; ok {
		p.Release(conn)
	}
	return errors.Wrap(errors.ErrAcquireTimeout, "connection acquisition timed out", cause)
}

// Release returns a connection to the pool. It is safe to call immediately
// after issuing a write, before the write or the gateway's acknowledgement
// completes.
func (p *Pool) Release(conn Connection) {
	p.mu.Lock()

	// Every pooled connection lives in p.conns, so Close already handles
	// closing conn; it just must not re-enter the idle list.
	if p.closed {
		p.mu.Unlock()
		return
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		w <- conn
		return
	}

	p.idle = append(p.idle, conn)
	p.mu.Unlock()
}

// Close shuts the pool down: queued acquisitions fail with POOL_CLOSED and
// every connection is closed after its in-flight writes have been allowed
// to resolve. Close is idempotent; later calls wait for the first teardown
// and return its result.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.drained
		return p.closeErr
	}
	p.closed = true

	waiters := p.waiters
	p.waiters = nil

	conns := make([]Connection, 0, len(p.conns))
	for conn := range p.conns {
		conns = append(conns, conn)
	}
	p.conns = make(map[Connection]struct{})
	p.idle = nil
	p.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}

	var closeErr error
	for _, conn := range conns {
		if err := conn.Close(ctx); err != nil && closeErr == nil {
			closeErr = errors.Wrap(errors.ErrShutdownFailed, "connection close failed", err)
		}
		p.listener.ConnectionRemoved()
	}

	p.closeErr = closeErr
	close(p.drained)

	p.log.Info("connection pool closed", "connections", len(conns), "cancelled_waiters", len(waiters))
	return closeErr
}

// Stats reports a point-in-time view of pool occupancy.
type Stats struct {
	Open    int `json:"open"`
	Idle    int `json:"idle"`
	Pending int `json:"pending"`
}

// Stats returns current pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Open:    p.total,
		Idle:    len(p.idle),
		Pending: len(p.waiters),
	}
}
