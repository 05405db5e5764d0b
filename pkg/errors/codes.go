// Package errors provides error codes for pushgate
package errors

// ErrorCode represents a pushgate error code
type ErrorCode string

// Client lifecycle error codes
const (
	// ErrClientClosed indicates a send was attempted after the client was closed
	ErrClientClosed ErrorCode = "CLIENT_CLOSED"

	// ErrPoolClosed indicates the connection pool was closed while work was pending
	ErrPoolClosed ErrorCode = "POOL_CLOSED"

	// ErrShutdownFailed indicates the shutdown path did not complete cleanly
	ErrShutdownFailed ErrorCode = "SHUTDOWN_FAILED"
)

// Connection acquisition error codes
const (
	// ErrAcquisitionFailed indicates the pool could not hand back a connection
	ErrAcquisitionFailed ErrorCode = "ACQUISITION_FAILED"

	// ErrPoolExhausted indicates the pending-acquisition queue is full
	ErrPoolExhausted ErrorCode = "POOL_EXHAUSTED"

	// ErrAcquireTimeout indicates connection acquisition timed out
	ErrAcquireTimeout ErrorCode = "ACQUIRE_TIMEOUT"

	// ErrConnectionFailed indicates a new connection could not be established
	ErrConnectionFailed ErrorCode = "CONNECTION_FAILED"
)

// Transport error codes
const (
	// ErrWriteFailed indicates the write to the gateway failed at the transport layer
	ErrWriteFailed ErrorCode = "WRITE_FAILED"

	// ErrResponseMalformed indicates the gateway response could not be parsed
	ErrResponseMalformed ErrorCode = "RESPONSE_MALFORMED"
)

// Configuration error codes
const (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrMissingCredentials indicates neither a certificate nor a signing key was supplied
	ErrMissingCredentials ErrorCode = "MISSING_CREDENTIALS"

	// ErrAmbiguousCredentials indicates both a certificate and a signing key were supplied
	ErrAmbiguousCredentials ErrorCode = "AMBIGUOUS_CREDENTIALS"

	// ErrInvalidMessage indicates a malformed message
	ErrInvalidMessage ErrorCode = "INVALID_MESSAGE"
)

// retryableCodes classifies the codes a caller may retry after. Gateway
// rejections never appear here: a rejection is a completed response, not an
// error, and is permanent by policy.
var retryableCodes = map[ErrorCode]bool{
	ErrAcquisitionFailed: true,
	ErrPoolExhausted:     true,
	ErrAcquireTimeout:    true,
	ErrConnectionFailed:  true,
	ErrWriteFailed:       true,
}

// IsRetryable reports whether an operation failing with the given code may
// be retried by the caller.
func IsRetryable(code ErrorCode) bool {
	return retryableCodes[code]
}
