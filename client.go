package pushgate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kart-io/pushgate/pkg/config"
	"github.com/kart-io/pushgate/pkg/errors"
	"github.com/kart-io/pushgate/pkg/feedback"
	"github.com/kart-io/pushgate/pkg/logger"
	"github.com/kart-io/pushgate/pkg/message"
	"github.com/kart-io/pushgate/pkg/metrics"
	"github.com/kart-io/pushgate/pkg/pool"
	"github.com/kart-io/pushgate/pkg/response"
	"github.com/kart-io/pushgate/pkg/result"
)

// connectionPool is the pool contract the client dispatches through.
type connectionPool interface {
	Acquire(ctx context.Context) (pool.Connection, error)
	Release(conn pool.Connection)
	Close(ctx context.Context) error
}

// sharedResources is the resource set torn down during Close when the
// client owns it.
type sharedResources interface {
	ShutdownGracefully(ctx context.Context) error
}

// Client sends push notifications to the gateway over pooled, persistent
// connections. Clients are long-lived, safe for concurrent use, and ready
// to send as soon as they are constructed; connections open on demand.
// Call Close when the client is no longer needed.
type Client struct {
	pool     connectionPool
	sink     metrics.Sink
	log      logger.Logger
	feedback feedback.Store

	resources     sharedResources
	ownsResources bool

	closed   atomic.Bool
	shutdown *ShutdownSignal
}

// newClient wires a client from its collaborators. ownsResources is fixed
// here and never changes: it decides whether Close tears the resource set
// down.
func newClient(p connectionPool, cfg *config.Config, resources sharedResources, ownsResources bool) *Client {
	return &Client{
		pool:          p,
		sink:          safeSink{sink: cfg.MetricsSink, log: cfg.Logger},
		log:           cfg.Logger,
		feedback:      cfg.FeedbackStore,
		resources:     resources,
		ownsResources: ownsResources,
		shutdown:      newShutdownSignal(),
	}
}

// Send dispatches a push notification to the gateway and returns a handle
// that completes when the message has been accepted or rejected by the
// gateway, or when sending it failed.
//
// A gateway rejection is a permanent outcome; the caller must not resubmit
// the message unmodified. A handle failing with a retryable error
// (acquisition or write failure) may be retried by the caller once the
// underlying problem is resolved; this layer never retries.
//
// Send never blocks and never fails synchronously: every failure surfaces
// through the returned handle.
func (c *Client) Send(ctx context.Context, msg *message.Message) *result.Handle {
	handle := result.NewHandle(msg)

	if c.closed.Load() {
		handle.Fail(errors.New(errors.ErrClientClosed,
			"client has been closed and can no longer send push notifications"))
		return handle
	}

	start := time.Now()

	go c.dispatch(ctx, msg, handle)

	handle.OnComplete(func(resp *response.Response, err error) {
		if resp != nil {
			c.sink.Acknowledged(resp, time.Since(start))
			c.recordFeedback(msg, resp)
		} else {
			c.sink.WriteFailure(msg.Topic)
		}
	})

	return handle
}

// dispatch runs the acquire-write-release cycle off the caller's
// goroutine.
func (c *Client) dispatch(ctx context.Context, msg *message.Message, handle *result.Handle) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		handle.Fail(err)
		return
	}

	// The connection is multiplexed: release it as soon as the write has
	// been issued, not when the gateway's verdict arrives. A synchronous
	// issue failure is not a completion; the transport's failure path
	// completes the handle, which feeds the write-failure metric.
	if err := conn.Write(msg, handle); err != nil {
		c.log.Warn("failed to issue write", "message_id", msg.ID, "error", err)
	} else {
		c.sink.Sent(msg.Topic)
	}

	c.pool.Release(conn)
}

// recordFeedback forwards token-invalidating rejections to the feedback
// store. Store failures are logged and swallowed; feedback can never block
// a completion.
func (c *Client) recordFeedback(msg *message.Message, resp *response.Response) {
	if c.feedback == nil || resp.Accepted() || !resp.TokenInvalid() {
		return
	}

	invalidatedAt := time.Now()
	if resp.TokenInvalidatedAt != nil {
		invalidatedAt = *resp.TokenInvalidatedAt
	}

	report := feedback.InvalidToken{
		Token:         msg.DeviceToken,
		Reason:        resp.Reason,
		InvalidatedAt: invalidatedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := c.feedback.RecordInvalidToken(ctx, report); err != nil {
			c.log.Warn("failed to record invalid token", "token", report.Token, "error", err)
		}
	}()
}

// defaultShutdownTimeout bounds the drain when the Close context carries
// no deadline of its own.
const defaultShutdownTimeout = 30 * time.Second

// Close gracefully shuts the client down. New sends are rejected
// immediately; messages already written to the gateway are allowed to
// resolve before their connections close. If the client created its own
// resource set it is shut down once the pool has closed; a resource set
// supplied at construction is left to its owner.
//
// The drain honors ctx's deadline when one is set and defaultShutdownTimeout
// otherwise. Cancelling ctx after Close returns does not abort the drain;
// wait on the returned signal to observe completion.
//
// Close is idempotent and safe to call concurrently: every call returns
// the same ShutdownSignal, and the teardown runs exactly once. A closed
// client cannot be reused.
func (c *Client) Close(ctx context.Context) *ShutdownSignal {
	if c.closed.CompareAndSwap(false, true) {
		c.log.Info("shutting down")

		// The teardown outlives the Close call, so only ctx's deadline
		// carries over, not its cancellation.
		tctx := context.WithoutCancel(ctx)
		var cancel context.CancelFunc
		if deadline, ok := ctx.Deadline(); ok {
			tctx, cancel = context.WithDeadline(tctx, deadline)
		} else {
			tctx, cancel = context.WithTimeout(tctx, defaultShutdownTimeout)
		}

		go func() {
			defer cancel()
			c.teardown(tctx)
		}()
	}
	return c.shutdown
}

func (c *Client) teardown(ctx context.Context) {
	err := c.pool.Close(ctx)
	if err != nil {
		c.log.Error("pool close failed", "error", err)
	}

	if c.ownsResources {
		if rerr := c.resources.ShutdownGracefully(ctx); rerr != nil {
			c.log.Error("resource shutdown failed", "error", rerr)
			if err == nil {
				err = errors.Wrap(errors.ErrShutdownFailed, "resource shutdown failed", rerr)
			}
		}
	}

	c.shutdown.complete(err)
}

// safeSink isolates metrics sink callbacks so a panicking sink cannot
// stall message completion or shutdown.
type safeSink struct {
	sink metrics.Sink
	log  logger.Logger
}

func (s safeSink) guard(event string) {
	if r := recover(); r != nil {
		s.log.Error("metrics sink panicked", "event", event, "panic", r)
	}
}

func (s safeSink) Sent(topic string) {
	defer s.guard("sent")
	s.sink.Sent(topic)
}

func (s safeSink) WriteFailure(topic string) {
	defer s.guard("write_failure")
	s.sink.WriteFailure(topic)
}

func (s safeSink) Acknowledged(resp *response.Response, duration time.Duration) {
	defer s.guard("acknowledged")
	s.sink.Acknowledged(resp, duration)
}

func (s safeSink) ConnectionAdded() {
	defer s.guard("connection_added")
	s.sink.ConnectionAdded()
}

func (s safeSink) ConnectionRemoved() {
	defer s.guard("connection_removed")
	s.sink.ConnectionRemoved()
}

func (s safeSink) ConnectionCreationFailed() {
	defer s.guard("connection_creation_failed")
	s.sink.ConnectionCreationFailed()
}
