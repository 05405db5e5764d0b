// Package transport implements the gateway connection the pool hands out.
//
// One GatewayConn wraps one HTTP/2 client connection. Writes are issued as
// individual streams, so a connection carries many in-flight messages at
// once and is returned to the pool as soon as a write has been issued.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	"github.com/kart-io/pushgate/pkg/auth"
	"github.com/kart-io/pushgate/pkg/errors"
	"github.com/kart-io/pushgate/pkg/logger"
	"github.com/kart-io/pushgate/pkg/message"
	"github.com/kart-io/pushgate/pkg/response"
	"github.com/kart-io/pushgate/pkg/result"
)

// The gateway caps error bodies at a few hundred bytes; this bound is
// generous.
const maxResponseBody = 4096

// DefaultRequestTimeout bounds a single request round trip.
const DefaultRequestTimeout = 30 * time.Second

// Config describes how connections reach the gateway.
type Config struct {
	// Authority is the gateway host:port.
	Authority string

	// TLSConfig carries the client certificate in certificate-based auth
	// mode; nil otherwise.
	TLSConfig *tls.Config

	// Signer mints provider tokens in token-based auth mode; nil otherwise.
	Signer *auth.TokenSigner

	// Transport is the shared HTTP/2 transport connections are built on.
	Transport *http2.Transport

	// RequestTimeout bounds a single request round trip.
	RequestTimeout time.Duration

	Logger logger.Logger
}

// GatewayConn is a single multiplexed connection to the gateway.
type GatewayConn struct {
	cfg Config
	cc  *http2.ClientConn
	log logger.Logger

	closed   atomic.Bool
	inflight sync.WaitGroup
}

// Dial opens a TLS connection to the gateway and binds an HTTP/2 client
// connection over it.
func Dial(ctx context.Context, cfg Config) (*GatewayConn, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard
	}
	if cfg.Transport == nil {
		cfg.Transport = &http2.Transport{}
	}

	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		tlsConfig = tlsConfig.Clone()
	}
	tlsConfig.NextProtos = []string{http2.NextProtoTLS}

	dialer := &tls.Dialer{Config: tlsConfig}
	raw, err := dialer.DialContext(ctx, "tcp", cfg.Authority)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Authority, err)
	}

	cc, err := cfg.Transport.NewClientConn(raw)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("establish http/2 connection: %w", err)
	}

	return &GatewayConn{
		cfg: cfg,
		cc:  cc,
		log: cfg.Logger,
	}, nil
}

// NewFactory returns a pool factory dialing connections with cfg.
func NewFactory(cfg Config) func(ctx context.Context) (*GatewayConn, error) {
	return func(ctx context.Context) (*GatewayConn, error) {
		return Dial(ctx, cfg)
	}
}

// Write issues msg on the connection. The request proceeds on its own
// goroutine and eventually completes the handle with the gateway's
// response or a WRITE_FAILED error. A non-nil return reports that the
// write could not be issued; the handle is still completed through the
// failure path.
func (c *GatewayConn) Write(msg *message.Message, handle *result.Handle) error {
	if c.closed.Load() || !c.cc.CanTakeNewRequest() {
		err := errors.New(errors.ErrWriteFailed, "connection is closed").WithTopic(msg.Topic)
		go handle.Fail(err)
		return err
	}

	c.inflight.Add(1)
	go c.roundTrip(msg, handle)
	return nil
}

func (c *GatewayConn) roundTrip(msg *message.Message, handle *result.Handle) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
	defer cancel()

	req, err := c.buildRequest(ctx, msg)
	if err != nil {
		handle.Fail(err)
		return
	}

	resp, err := c.cc.RoundTrip(req)
	if err != nil {
		c.log.Warn("gateway write failed", "message_id", msg.ID, "error", err)
		handle.Fail(errors.Wrap(errors.ErrWriteFailed, "gateway request failed", err).WithTopic(msg.Topic))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		handle.Fail(errors.Wrap(errors.ErrResponseMalformed, "failed to read gateway response", err).WithTopic(msg.Topic))
		return
	}

	parsed := response.Parse(resp.StatusCode, resp.Header.Get("apns-id"), body)
	if parsed.Reason == response.ReasonExpiredToken && c.cfg.Signer != nil {
		c.cfg.Signer.Invalidate()
	}

	handle.Succeed(parsed)
}

func (c *GatewayConn) buildRequest(ctx context.Context, msg *message.Message) (*http.Request, error) {
	url := fmt.Sprintf("https://%s/3/device/%s", c.cfg.Authority, msg.DeviceToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(msg.Payload))
	if err != nil {
		return nil, errors.Wrap(errors.ErrWriteFailed, "failed to build gateway request", err).WithTopic(msg.Topic)
	}

	req.Header.Set("apns-id", msg.ID)
	req.Header.Set("apns-priority", strconv.Itoa(int(msg.Priority)))
	if msg.Topic != "" {
		req.Header.Set("apns-topic", msg.Topic)
	}
	if msg.PushType != "" {
		req.Header.Set("apns-push-type", string(msg.PushType))
	}
	if msg.CollapseID != "" {
		req.Header.Set("apns-collapse-id", msg.CollapseID)
	}
	if !msg.Expiration.IsZero() {
		req.Header.Set("apns-expiration", strconv.FormatInt(msg.Expiration.Unix(), 10))
	}

	if c.cfg.Signer != nil {
		token, err := c.cfg.Signer.Token()
		if err != nil {
			return nil, errors.Wrap(errors.ErrWriteFailed, "failed to obtain provider token", err).WithTopic(msg.Topic)
		}
		req.Header.Set("authorization", "bearer "+token)
	}

	return req, nil
}

// Close drains in-flight writes, then shuts the HTTP/2 connection down
// gracefully. In-flight messages resolve with their gateway verdicts
// before the connection fully closes.
func (c *GatewayConn) Close(ctx context.Context) error {
	c.closed.Store(true)

	drained := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		_ = c.cc.Close()
		return ctx.Err()
	}

	return c.cc.Shutdown(ctx)
}
