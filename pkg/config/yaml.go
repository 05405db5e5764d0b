package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kart-io/pushgate/pkg/errors"
)

// fileConfig mirrors the YAML shape of a configuration file. Durations are
// parsed from Go duration strings ("30s", "1m").
type fileConfig struct {
	GatewayAddress string `yaml:"gateway_address"`

	SigningKeyFile string `yaml:"signing_key_file"`
	KeyID          string `yaml:"key_id"`
	TeamID         string `yaml:"team_id"`

	CertificateFile    string `yaml:"certificate_file"`
	CertificateKeyFile string `yaml:"certificate_key_file"`

	ConcurrentConnections  int    `yaml:"concurrent_connections"`
	MaxPendingAcquisitions int    `yaml:"max_pending_acquisitions"`
	RequestTimeout         string `yaml:"request_timeout"`
}

// FromYAMLFile applies settings from a YAML configuration file. Options
// placed after it override file values; instance-level collaborators
// (logger, metrics sink, feedback store, resources) cannot be configured
// from a file.
func FromYAMLFile(path string) Option {
	return func(c *Config) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.ErrInvalidConfig, "failed to read config file", err)
		}

		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return errors.Wrap(errors.ErrInvalidConfig, "failed to parse config file", err)
		}

		if fc.GatewayAddress != "" {
			c.GatewayAddress = fc.GatewayAddress
		}
		if fc.SigningKeyFile != "" {
			c.SigningKeyFile = fc.SigningKeyFile
			c.KeyID = fc.KeyID
			c.TeamID = fc.TeamID
		}
		if fc.CertificateFile != "" {
			c.CertificateFile = fc.CertificateFile
			c.CertificateKeyFile = fc.CertificateKeyFile
		}
		if fc.ConcurrentConnections > 0 {
			c.ConcurrentConnections = fc.ConcurrentConnections
		}
		if fc.MaxPendingAcquisitions > 0 {
			c.MaxPendingAcquisitions = fc.MaxPendingAcquisitions
		}
		if fc.RequestTimeout != "" {
			timeout, err := time.ParseDuration(fc.RequestTimeout)
			if err != nil {
				return errors.Wrap(errors.ErrInvalidConfig, "invalid request_timeout", err)
			}
			c.RequestTimeout = timeout
		}

		return nil
	}
}
