// Package config provides the configuration system for pushgate clients
package config

import (
	"time"

	"github.com/kart-io/pushgate/pkg/errors"
	"github.com/kart-io/pushgate/pkg/feedback"
	"github.com/kart-io/pushgate/pkg/logger"
	"github.com/kart-io/pushgate/pkg/metrics"
	"github.com/kart-io/pushgate/pkg/transport"
)

// Config represents the full client configuration. Build one through New
// and the functional options; zero values fall back to defaults at
// validation time.
type Config struct {
	// GatewayAddress is the gateway host:port. Required.
	GatewayAddress string `json:"gateway_address" yaml:"gateway_address"`

	// Token-based authentication. Mutually exclusive with the certificate
	// fields; exactly one auth mode must be configured.
	SigningKey     []byte `json:"-" yaml:"-"`
	SigningKeyFile string `json:"signing_key_file,omitempty" yaml:"signing_key_file,omitempty"`
	KeyID          string `json:"key_id,omitempty" yaml:"key_id,omitempty"`
	TeamID         string `json:"team_id,omitempty" yaml:"team_id,omitempty"`

	// Certificate-based authentication.
	CertificateFile    string `json:"certificate_file,omitempty" yaml:"certificate_file,omitempty"`
	CertificateKeyFile string `json:"certificate_key_file,omitempty" yaml:"certificate_key_file,omitempty"`

	// Pool sizing.
	ConcurrentConnections  int `json:"concurrent_connections" yaml:"concurrent_connections"`
	MaxPendingAcquisitions int `json:"max_pending_acquisitions" yaml:"max_pending_acquisitions"`

	// RequestTimeout bounds a single gateway round trip.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// Instance-level collaborators, never serialized.
	Logger        logger.Logger        `json:"-" yaml:"-"`
	MetricsSink   metrics.Sink         `json:"-" yaml:"-"`
	FeedbackStore feedback.Store       `json:"-" yaml:"-"`
	Resources     *transport.Resources `json:"-" yaml:"-"`
}

// Option defines a functional option for configuration
type Option func(*Config) error

// New creates a new configuration with the given options applied over
// defaults.
func New(opts ...Option) (*Config, error) {
	cfg := &Config{
		ConcurrentConnections:  1,
		MaxPendingAcquisitions: 1024,
		RequestTimeout:         30 * time.Second,
		Logger:                 logger.New(),
		MetricsSink:            metrics.Noop,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for completeness and consistency.
func (c *Config) Validate() error {
	if c.GatewayAddress == "" {
		return errors.New(errors.ErrInvalidConfig, "gateway address is required")
	}

	hasKey := len(c.SigningKey) > 0 || c.SigningKeyFile != ""
	hasCert := c.CertificateFile != "" || c.CertificateKeyFile != ""

	switch {
	case hasKey && hasCert:
		return errors.New(errors.ErrAmbiguousCredentials,
			"a signing key and a client certificate are mutually exclusive; configure one")
	case !hasKey && !hasCert:
		return errors.New(errors.ErrMissingCredentials,
			"either a signing key or a client certificate must be configured")
	case hasKey && (c.KeyID == "" || c.TeamID == ""):
		return errors.New(errors.ErrInvalidConfig, "token authentication requires key ID and team ID")
	case hasCert && (c.CertificateFile == "" || c.CertificateKeyFile == ""):
		return errors.New(errors.ErrInvalidConfig, "certificate authentication requires certificate and key files")
	}

	if c.ConcurrentConnections <= 0 {
		return errors.New(errors.ErrInvalidConfig, "concurrent connections must be positive")
	}
	if c.MaxPendingAcquisitions <= 0 {
		return errors.New(errors.ErrInvalidConfig, "max pending acquisitions must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New(errors.ErrInvalidConfig, "request timeout must be positive")
	}

	return nil
}

// UsesTokenAuth reports whether the configuration selects token-based
// authentication.
func (c *Config) UsesTokenAuth() bool {
	return len(c.SigningKey) > 0 || c.SigningKeyFile != ""
}
