package core

import "errors"

// ErrorCode is a stable machine-readable identifier for a specific failure
// condition raised by the session engine.
type ErrorCode string

// Error code constants.
const (
	// ErrCodeConnect indicates the websocket dial or handshake failed.
	ErrCodeConnect ErrorCode = "CONNECT_ERROR"
	// ErrCodeDecode indicates a malformed wire envelope or payload.
	ErrCodeDecode ErrorCode = "DECODE_ERROR"
	// ErrCodeTimeout indicates a request deadline elapsed with no reply.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeKeepAlive indicates the pong grace window expired and the
	// connection was declared dead.
	ErrCodeKeepAlive ErrorCode = "KEEPALIVE_TIMEOUT"
	// ErrCodeShuttingDown indicates the request was cancelled by Stop.
	ErrCodeShuttingDown ErrorCode = "SHUTTING_DOWN"
	// ErrCodeUnmatched indicates a frame matched no pending request or
	// registered subscription.
	ErrCodeUnmatched ErrorCode = "UNMATCHED_FRAME"

	// Authentication failures. Credential rejection, second-factor rejection
	// and suspected clock skew are reported distinctly.
	ErrCodeCredentialsRejected  ErrorCode = "CREDENTIALS_REJECTED"
	ErrCodeSecondFactorRejected ErrorCode = "SECOND_FACTOR_REJECTED"
	ErrCodeClockSkewSuspected   ErrorCode = "CLOCK_SKEW_SUSPECTED"

	// Gateway-reported request failures.
	ErrCodeServerError ErrorCode = "SERVER_ERROR"
	ErrCodeBadRequest  ErrorCode = "BAD_REQUEST"

	// Client state errors.
	ErrCodeClientClosed ErrorCode = "CLIENT_CLOSED"
	ErrCodeNotConnected ErrorCode = "NOT_CONNECTED"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// IsErrorCode checks if the error carries the specified error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
