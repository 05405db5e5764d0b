package response

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Accepted(t *testing.T) {
	resp := Parse(http.StatusOK, "c8a5b2f1-0000-4000-8000-000000000000", nil)

	assert.True(t, resp.Accepted())
	assert.Equal(t, "c8a5b2f1-0000-4000-8000-000000000000", resp.ApnsID)
	assert.Empty(t, resp.Reason)
	assert.Nil(t, resp.TokenInvalidatedAt)
}

func TestParse_Rejection(t *testing.T) {
	body := []byte(`{"reason":"BadDeviceToken"}`)
	resp := Parse(http.StatusBadRequest, "id", body)

	assert.False(t, resp.Accepted())
	assert.Equal(t, ReasonBadDeviceToken, resp.Reason)
	assert.True(t, resp.TokenInvalid())
	assert.Nil(t, resp.TokenInvalidatedAt)
}

func TestParse_UnregisteredWithTimestamp(t *testing.T) {
	body := []byte(`{"reason":"Unregistered","timestamp":1717000000000}`)
	resp := Parse(http.StatusGone, "id", body)

	assert.Equal(t, ReasonUnregistered, resp.Reason)
	assert.True(t, resp.TokenInvalid())
	require.NotNil(t, resp.TokenInvalidatedAt)
	assert.Equal(t, time.UnixMilli(1717000000000), *resp.TokenInvalidatedAt)
}

func TestParse_ExpiredProviderTokenIsNotDeviceInvalidation(t *testing.T) {
	body := []byte(`{"reason":"ExpiredProviderToken"}`)
	resp := Parse(http.StatusForbidden, "id", body)

	assert.Equal(t, ReasonExpiredToken, resp.Reason)
	assert.False(t, resp.TokenInvalid())
}

func TestParse_MalformedBody(t *testing.T) {
	resp := Parse(http.StatusInternalServerError, "id", []byte("not json"))

	assert.False(t, resp.Accepted())
	assert.Empty(t, resp.Reason)
	assert.False(t, resp.TokenInvalid())
}

func TestParse_EmptyRejectionBody(t *testing.T) {
	resp := Parse(http.StatusBadRequest, "id", nil)

	assert.False(t, resp.Accepted())
	assert.Empty(t, resp.Reason)
}
