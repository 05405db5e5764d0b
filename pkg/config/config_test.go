package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pushgate/pkg/errors"
	"github.com/kart-io/pushgate/pkg/logger"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New(
		WithGatewayAddress("api.push.example.com:443"),
		WithSigningKeyFile("AuthKey.p8", "KEY1234567", "TEAM123456"),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.ConcurrentConnections)
	assert.Equal(t, 1024, cfg.MaxPendingAcquisitions)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.MetricsSink)
	assert.True(t, cfg.UsesTokenAuth())
}

func TestNew_RequiresGatewayAddress(t *testing.T) {
	_, err := New(WithSigningKeyFile("AuthKey.p8", "KEY1234567", "TEAM123456"))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(WithGatewayAddress("api.push.example.com:443"))
	assert.True(t, errors.HasCode(err, errors.ErrMissingCredentials))
}

func TestNew_RejectsAmbiguousCredentials(t *testing.T) {
	_, err := New(
		WithGatewayAddress("api.push.example.com:443"),
		WithSigningKeyFile("AuthKey.p8", "KEY1234567", "TEAM123456"),
		WithClientCertificate("cert.pem", "key.pem"),
	)
	assert.True(t, errors.HasCode(err, errors.ErrAmbiguousCredentials))
}

func TestNew_TokenAuthRequiresIdentifiers(t *testing.T) {
	_, err := New(
		WithGatewayAddress("api.push.example.com:443"),
		WithSigningKeyFile("AuthKey.p8", "", "TEAM123456"),
	)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestNew_RejectsNonPositiveSizing(t *testing.T) {
	_, err := New(
		WithGatewayAddress("api.push.example.com:443"),
		WithSigningKeyFile("AuthKey.p8", "KEY1234567", "TEAM123456"),
		WithConcurrentConnections(0),
	)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

	_, err = New(
		WithGatewayAddress("api.push.example.com:443"),
		WithSigningKeyFile("AuthKey.p8", "KEY1234567", "TEAM123456"),
		WithMaxPendingAcquisitions(-1),
	)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestNew_OptionsOverrideDefaults(t *testing.T) {
	cfg, err := New(
		WithGatewayAddress("api.push.example.com:443"),
		WithSigningKey([]byte("pem"), "KEY1234567", "TEAM123456"),
		WithConcurrentConnections(8),
		WithMaxPendingAcquisitions(256),
		WithRequestTimeout(5*time.Second),
		WithLogger(logger.Discard),
	)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.ConcurrentConnections)
	assert.Equal(t, 256, cfg.MaxPendingAcquisitions)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, logger.Discard, cfg.Logger)
}

func TestFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway_address: api.push.example.com:443
signing_key_file: AuthKey.p8
key_id: KEY1234567
team_id: TEAM123456
concurrent_connections: 4
max_pending_acquisitions: 512
request_timeout: 10s
`), 0o600))

	cfg, err := New(FromYAMLFile(path))
	require.NoError(t, err)

	assert.Equal(t, "api.push.example.com:443", cfg.GatewayAddress)
	assert.Equal(t, "AuthKey.p8", cfg.SigningKeyFile)
	assert.Equal(t, "KEY1234567", cfg.KeyID)
	assert.Equal(t, "TEAM123456", cfg.TeamID)
	assert.Equal(t, 4, cfg.ConcurrentConnections)
	assert.Equal(t, 512, cfg.MaxPendingAcquisitions)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestFromYAMLFile_OptionsAfterFileWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pushgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway_address: api.push.example.com:443
signing_key_file: AuthKey.p8
key_id: KEY1234567
team_id: TEAM123456
concurrent_connections: 4
`), 0o600))

	cfg, err := New(
		FromYAMLFile(path),
		WithConcurrentConnections(16),
	)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.ConcurrentConnections)
}

func TestFromYAMLFile_Errors(t *testing.T) {
	_, err := New(FromYAMLFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("gateway_address: [broken"), 0o600))
	_, err = New(FromYAMLFile(bad))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

	badTimeout := filepath.Join(t.TempDir(), "timeout.yaml")
	require.NoError(t, os.WriteFile(badTimeout, []byte(`
gateway_address: api.push.example.com:443
signing_key_file: AuthKey.p8
key_id: KEY1234567
team_id: TEAM123456
request_timeout: soon
`), 0o600))
	_, err = New(FromYAMLFile(badTimeout))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}
