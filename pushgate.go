// Package pushgate is an asynchronous client for a push-notification
// gateway. It dispatches messages over pooled, multiplexed connections and
// reports per-message outcomes through single-assignment result handles,
// without ever blocking the caller.
//
// Basic usage:
//
//	client, err := pushgate.New(
//		config.WithGatewayAddress("gateway.example.com:443"),
//		config.WithSigningKeyFile("key.p8", "KEYID", "TEAMID"),
//	)
//	if err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	msg := message.New().
//		SetDeviceToken(token).
//		SetTopic("com.example.app").
//		SetPayload(payload)
//
//	handle := client.Send(ctx, msg)
//	resp, err := handle.Wait(ctx)
//
// Clients authenticate with either a TLS client certificate or an ES256
// signing key; exactly one must be configured. Retry policy belongs to the
// caller: a rejection by the gateway is permanent, while acquisition and
// write failures are retryable.
package pushgate

import (
	"context"
	"crypto/tls"

	"github.com/kart-io/pushgate/pkg/auth"
	"github.com/kart-io/pushgate/pkg/config"
	"github.com/kart-io/pushgate/pkg/pool"
	"github.com/kart-io/pushgate/pkg/transport"
)

// New constructs a client from the given options.
//
// Unless config.WithResources supplies a shared resource set, the client
// creates and owns its own, tearing it down during Close. Many clients may
// share one resource set to bound process-wide transport state; its owner
// then shuts it down after every client using it has closed.
func New(opts ...config.Option) (*Client, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, err
	}

	resources := cfg.Resources
	ownsResources := false
	if resources == nil {
		resources = transport.NewResources()
		ownsResources = true
	}

	var signer *auth.TokenSigner
	var tlsConfig *tls.Config

	if cfg.UsesTokenAuth() {
		if len(cfg.SigningKey) > 0 {
			signer, err = auth.NewTokenSigner(cfg.SigningKey, cfg.KeyID, cfg.TeamID)
		} else {
			signer, err = auth.NewTokenSignerFromFile(cfg.SigningKeyFile, cfg.KeyID, cfg.TeamID)
		}
	} else {
		tlsConfig, err = auth.LoadClientCertificateFromFiles(cfg.CertificateFile, cfg.CertificateKeyFile)
	}
	if err != nil {
		return nil, err
	}

	dial := transport.NewFactory(transport.Config{
		Authority:      cfg.GatewayAddress,
		TLSConfig:      tlsConfig,
		Signer:         signer,
		Transport:      resources.Transport(),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         cfg.Logger,
	})

	factory := pool.FactoryFunc(func(ctx context.Context) (pool.Connection, error) {
		conn, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})

	sink := safeSink{sink: cfg.MetricsSink, log: cfg.Logger}
	connPool := pool.New(factory, pool.Config{
		Capacity:   cfg.ConcurrentConnections,
		MaxPending: cfg.MaxPendingAcquisitions,
	}, sink, cfg.Logger)

	return newClient(connPool, cfg, resources, ownsResources), nil
}
