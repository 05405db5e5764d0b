// Package response provides the gateway outcome for a dispatched message
package response

import (
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Rejection reasons the dispatch layer reacts to. Unregistered and
// BadDeviceToken name a dead device token that should be pruned from the
// caller's registry; ExpiredToken means the provider token was stale and
// triggers a re-sign.
const (
	ReasonUnregistered   = "Unregistered"
	ReasonBadDeviceToken = "BadDeviceToken"
	ReasonExpiredToken   = "ExpiredProviderToken"
)

// Response represents the gateway's verdict on a single message. A
// rejection is a terminal, permanent outcome: the caller must not resubmit
// the message unmodified. Send-layer failures are represented as errors on
// the result handle instead and never produce a Response.
type Response struct {
	// ApnsID echoes the canonical notification ID assigned by the gateway
	ApnsID string `json:"apns_id"`

	// StatusCode is the raw gateway status
	StatusCode int `json:"status_code"`

	// Reason is the gateway's rejection reason, empty when accepted
	Reason string `json:"reason,omitempty"`

	// TokenInvalidatedAt is set when the gateway reports the device token
	// as no longer valid, carrying the time it became invalid
	TokenInvalidatedAt *time.Time `json:"token_invalidated_at,omitempty"`
}

// Accepted reports whether the gateway accepted the message for delivery
func (r *Response) Accepted() bool {
	return r.StatusCode == http.StatusOK
}

// TokenInvalid reports whether the rejection names a dead device token
func (r *Response) TokenInvalid() bool {
	switch r.Reason {
	case ReasonUnregistered, ReasonBadDeviceToken:
		return true
	}
	return false
}

// Parse builds a Response from a raw gateway reply. The error body is a
// JSON object carrying a "reason" string and, for invalidated tokens, a
// "timestamp" in milliseconds since the epoch.
func Parse(statusCode int, apnsID string, body []byte) *Response {
	resp := &Response{
		ApnsID:     apnsID,
		StatusCode: statusCode,
	}

	if statusCode == http.StatusOK || len(body) == 0 {
		return resp
	}

	resp.Reason = gjson.GetBytes(body, "reason").String()

	if ts := gjson.GetBytes(body, "timestamp"); ts.Exists() && ts.Int() > 0 {
		at := time.UnixMilli(ts.Int())
		resp.TokenInvalidatedAt = &at
	}

	return resp
}
