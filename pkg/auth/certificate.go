package auth

import (
	"crypto/tls"
	"os"

	"github.com/kart-io/pushgate/pkg/errors"
)

// LoadClientCertificate builds a TLS configuration presenting the client
// certificate at connection time. Certificate-based clients may send to
// any topic named in the certificate.
func LoadClientCertificate(certPEM, keyPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "failed to load client certificate", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadClientCertificateFromFiles builds a TLS configuration from
// certificate and key files on disk.
func LoadClientCertificateFromFiles(certPath, keyPath string) (*tls.Config, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "failed to read certificate file", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "failed to read certificate key file", err)
	}
	return LoadClientCertificate(certPEM, keyPEM)
}
