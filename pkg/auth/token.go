// Package auth provides the two gateway authentication modes: ES256
// provider-token signing and TLS client certificates. Exactly one of the
// two must be configured on a client.
package auth

import (
	"crypto/ecdsa"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kart-io/pushgate/pkg/errors"
)

// Provider tokens are accepted by the gateway for up to an hour. Tokens
// are reissued well before that so an in-flight request never carries a
// token about to lapse.
const tokenLifetime = 50 * time.Minute

// TokenSigner mints and caches gateway provider tokens. It is safe for
// concurrent use by every connection of a client.
type TokenSigner struct {
	keyID  string
	teamID string
	key    *ecdsa.PrivateKey

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

// NewTokenSigner creates a signer from a PEM-encoded PKCS#8 ES256 private
// key, the key's identifier and the issuing team identifier.
func NewTokenSigner(pemKey []byte, keyID, teamID string) (*TokenSigner, error) {
	if keyID == "" || teamID == "" {
		return nil, errors.New(errors.ErrMissingCredentials, "signing key requires key ID and team ID")
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "failed to parse signing key", err)
	}

	return &TokenSigner{
		keyID:  keyID,
		teamID: teamID,
		key:    key,
	}, nil
}

// NewTokenSignerFromFile creates a signer from a key file on disk.
func NewTokenSignerFromFile(path, keyID, teamID string) (*TokenSigner, error) {
	pemKey, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "failed to read signing key file", err)
	}
	return NewTokenSigner(pemKey, keyID, teamID)
}

// KeyID returns the identifier of the signing key.
func (s *TokenSigner) KeyID() string {
	return s.keyID
}

// Token returns a provider token, reusing the cached one until it nears
// the gateway's validity window.
func (s *TokenSigner) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Since(s.issuedAt) < tokenLifetime {
		return s.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.teamID,
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(errors.ErrInvalidConfig, "failed to sign provider token", err)
	}

	s.token = signed
	s.issuedAt = now
	return signed, nil
}

// Invalidate discards the cached token so the next Token call reissues.
// Called when the gateway rejects a request with an expired-token reason.
func (s *TokenSigner) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
