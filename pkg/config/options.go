// Functional options for pushgate client configuration
package config

import (
	"time"

	"github.com/kart-io/pushgate/pkg/feedback"
	"github.com/kart-io/pushgate/pkg/logger"
	"github.com/kart-io/pushgate/pkg/metrics"
	"github.com/kart-io/pushgate/pkg/transport"
)

// WithGatewayAddress sets the gateway host:port.
func WithGatewayAddress(addr string) Option {
	return func(c *Config) error {
		c.GatewayAddress = addr
		return nil
	}
}

// WithSigningKey selects token-based authentication using a PEM-encoded
// ES256 private key held in memory.
func WithSigningKey(pemKey []byte, keyID, teamID string) Option {
	return func(c *Config) error {
		c.SigningKey = pemKey
		c.KeyID = keyID
		c.TeamID = teamID
		return nil
	}
}

// WithSigningKeyFile selects token-based authentication using a key file
// on disk.
func WithSigningKeyFile(path, keyID, teamID string) Option {
	return func(c *Config) error {
		c.SigningKeyFile = path
		c.KeyID = keyID
		c.TeamID = teamID
		return nil
	}
}

// WithClientCertificate selects certificate-based authentication.
func WithClientCertificate(certFile, keyFile string) Option {
	return func(c *Config) error {
		c.CertificateFile = certFile
		c.CertificateKeyFile = keyFile
		return nil
	}
}

// WithConcurrentConnections caps the number of open gateway connections.
func WithConcurrentConnections(n int) Option {
	return func(c *Config) error {
		c.ConcurrentConnections = n
		return nil
	}
}

// WithMaxPendingAcquisitions bounds sends queued behind a saturated pool.
func WithMaxPendingAcquisitions(n int) Option {
	return func(c *Config) error {
		c.MaxPendingAcquisitions = n
		return nil
	}
}

// WithRequestTimeout bounds a single gateway round trip.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.RequestTimeout = timeout
		return nil
	}
}

// WithLogger sets the logger instance.
func WithLogger(log logger.Logger) Option {
	return func(c *Config) error {
		c.Logger = log
		return nil
	}
}

// WithMetricsSink registers an observer for client lifecycle events.
func WithMetricsSink(sink metrics.Sink) Option {
	return func(c *Config) error {
		c.MetricsSink = sink
		return nil
	}
}

// WithFeedbackStore records gateway-invalidated device tokens in store.
func WithFeedbackStore(store feedback.Store) Option {
	return func(c *Config) error {
		c.FeedbackStore = store
		return nil
	}
}

// WithResources runs the client on an externally owned resource set shared
// across clients. The caller keeps teardown responsibility; the client
// will not shut shared resources down on Close.
func WithResources(resources *transport.Resources) Option {
	return func(c *Config) error {
		c.Resources = resources
		return nil
	}
}
