package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pushgate/pkg/errors"
)

func generateSigningKey(t *testing.T) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func TestNewTokenSigner_RequiresIdentifiers(t *testing.T) {
	pemKey := generateSigningKey(t)

	_, err := NewTokenSigner(pemKey, "", "TEAM123456")
	assert.True(t, errors.HasCode(err, errors.ErrMissingCredentials))

	_, err = NewTokenSigner(pemKey, "KEY1234567", "")
	assert.True(t, errors.HasCode(err, errors.ErrMissingCredentials))
}

func TestNewTokenSigner_RejectsGarbageKey(t *testing.T) {
	_, err := NewTokenSigner([]byte("not a pem key"), "KEY1234567", "TEAM123456")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestTokenSigner_SignsVerifiableToken(t *testing.T) {
	pemKey := generateSigningKey(t)
	signer, err := NewTokenSigner(pemKey, "KEY1234567", "TEAM123456")
	require.NoError(t, err)

	signed, err := signer.Token()
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	key, err := jwt.ParseECPrivateKeyFromPEM(pemKey)
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)

	assert.Equal(t, "KEY1234567", parsed.Header["kid"])
	issuer, err := parsed.Claims.GetIssuer()
	require.NoError(t, err)
	assert.Equal(t, "TEAM123456", issuer)
}

func TestTokenSigner_CachesUntilInvalidated(t *testing.T) {
	signer, err := NewTokenSigner(generateSigningKey(t), "KEY1234567", "TEAM123456")
	require.NoError(t, err)

	first, err := signer.Token()
	require.NoError(t, err)

	second, err := signer.Token()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	signer.Invalidate()

	third, err := signer.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, third)
	// ES256 signatures are randomized, so even an identical claim set
	// produces a fresh token string.
	assert.NotEqual(t, first, third)
}

func TestNewTokenSignerFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AuthKey_KEY1234567.p8")
	require.NoError(t, os.WriteFile(path, generateSigningKey(t), 0o600))

	signer, err := NewTokenSignerFromFile(path, "KEY1234567", "TEAM123456")
	require.NoError(t, err)
	assert.Equal(t, "KEY1234567", signer.KeyID())

	_, err = NewTokenSignerFromFile(filepath.Join(t.TempDir(), "missing.p8"), "KEY1234567", "TEAM123456")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}
