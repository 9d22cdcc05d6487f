package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of a client error.
type ErrorType int

// Error type constants categorize failures for retry and surfacing decisions.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeConnect indicates a socket or DNS failure. Handled by the
	// reconnect policy.
	ErrorTypeConnect
	// ErrorTypeDecode indicates a malformed wire frame. The frame is dropped
	// and the connection continues.
	ErrorTypeDecode
	// ErrorTypeAuth indicates the gateway rejected credentials or the
	// second-factor code. Surfaced to the caller, never retried silently.
	ErrorTypeAuth
	// ErrorTypeTimeout indicates a request or keep-alive deadline elapsed.
	ErrorTypeTimeout
	// ErrorTypeShuttingDown indicates cooperative cancellation during Stop.
	ErrorTypeShuttingDown
	// ErrorTypeUnmatched indicates a frame that matched no pending request or
	// subscription. Non-fatal, reported for observability only.
	ErrorTypeUnmatched
	// ErrorTypeServer indicates a gateway-reported failure for a request.
	ErrorTypeServer
	// ErrorTypeBadRequest indicates invalid request parameters.
	ErrorTypeBadRequest
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"UNKNOWN",
		"CONNECT",
		"DECODE",
		"AUTH",
		"TIMEOUT",
		"SHUTTING_DOWN",
		"UNMATCHED",
		"SERVER",
		"BAD_REQUEST",
	}[t]
}

// Sentinel errors for common conditions.
var (
	// ErrClientClosed is returned when using a client after Stop.
	ErrClientClosed = errors.New("client is closed")
	// ErrNotConnected is returned when the websocket has no active connection.
	ErrNotConnected = errors.New("websocket not connected")
	// ErrNotAuthenticated is returned for operations that require a live
	// authenticated session.
	ErrNotAuthenticated = errors.New("session not authenticated")
	// ErrSubscriptionNotFound is returned when unsubscribing an unknown handle.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ClientError is a structured error raised by the session engine.
type ClientError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// Code is the stable machine-readable identifier.
	Code ErrorCode `json:"code"`
	// Endpoint names the gateway operation involved, when known.
	Endpoint string `json:"endpoint,omitempty"`
	// Message is the human-readable description, including any
	// server-supplied reason.
	Message string `json:"message"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("[%s] %s (%s): %s", e.Endpoint, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
}

// NewClientError creates a ClientError with the current timestamp.
func NewClientError(errorType ErrorType, code ErrorCode, message string) *ClientError {
	return &ClientError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewClientErrorWithEndpoint creates a ClientError tagged with the gateway
// endpoint it relates to.
func NewClientErrorWithEndpoint(errorType ErrorType, code ErrorCode, endpoint, message string) *ClientError {
	return &ClientError{
		Type:      errorType,
		Code:      code,
		Endpoint:  endpoint,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// IsConnectError returns true if the error is a socket or DNS failure.
func IsConnectError(err error) bool {
	return isType(err, ErrorTypeConnect)
}

// IsDecodeError returns true if the error is a malformed-frame report.
func IsDecodeError(err error) bool {
	return isType(err, ErrorTypeDecode)
}

// IsAuthError returns true if the error is an authentication rejection.
func IsAuthError(err error) bool {
	return isType(err, ErrorTypeAuth)
}

// IsTimeoutError returns true if a request or keep-alive deadline elapsed.
func IsTimeoutError(err error) bool {
	return isType(err, ErrorTypeTimeout)
}

// IsShuttingDown returns true if the error is the cooperative Stop resolution.
func IsShuttingDown(err error) bool {
	return isType(err, ErrorTypeShuttingDown)
}

func isType(err error, t ErrorType) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}
