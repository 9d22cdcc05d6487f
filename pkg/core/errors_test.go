package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		name      string
		errorType ErrorType
		want      string
	}{
		{"unknown", ErrorTypeUnknown, "UNKNOWN"},
		{"connect", ErrorTypeConnect, "CONNECT"},
		{"decode", ErrorTypeDecode, "DECODE"},
		{"auth", ErrorTypeAuth, "AUTH"},
		{"timeout", ErrorTypeTimeout, "TIMEOUT"},
		{"shutting_down", ErrorTypeShuttingDown, "SHUTTING_DOWN"},
		{"unmatched", ErrorTypeUnmatched, "UNMATCHED"},
		{"server", ErrorTypeServer, "SERVER"},
		{"bad_request", ErrorTypeBadRequest, "BAD_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.errorType.String())
		})
	}
}

func TestClientError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ClientError
		want string
	}{
		{
			name: "with_endpoint",
			err: &ClientError{
				Type:     ErrorTypeTimeout,
				Code:     ErrCodeTimeout,
				Endpoint: "GetLevel1",
				Message:  "no reply after 10s",
			},
			want: "[GetLevel1] TIMEOUT (TIMEOUT): no reply after 10s",
		},
		{
			name: "without_endpoint",
			err: &ClientError{
				Type:    ErrorTypeConnect,
				Code:    ErrCodeConnect,
				Message: "dial failed",
			},
			want: "CONNECT (CONNECT_ERROR): dial failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNewClientError(t *testing.T) {
	err := NewClientError(ErrorTypeAuth, ErrCodeCredentialsRejected, "bad password")

	assert.Equal(t, ErrorTypeAuth, err.Type)
	assert.Equal(t, ErrCodeCredentialsRejected, err.Code)
	assert.Equal(t, "bad password", err.Message)
	assert.False(t, err.Timestamp.IsZero())
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"connect_matches", NewClientError(ErrorTypeConnect, ErrCodeConnect, "x"), IsConnectError, true},
		{"connect_wrapped", fmt.Errorf("dial: %w", NewClientError(ErrorTypeConnect, ErrCodeConnect, "x")), IsConnectError, true},
		{"connect_mismatch", NewClientError(ErrorTypeAuth, ErrCodeCredentialsRejected, "x"), IsConnectError, false},
		{"decode", NewClientError(ErrorTypeDecode, ErrCodeDecode, "x"), IsDecodeError, true},
		{"auth", NewClientError(ErrorTypeAuth, ErrCodeSecondFactorRejected, "x"), IsAuthError, true},
		{"timeout", NewClientError(ErrorTypeTimeout, ErrCodeTimeout, "x"), IsTimeoutError, true},
		{"shutting_down", NewClientError(ErrorTypeShuttingDown, ErrCodeShuttingDown, "x"), IsShuttingDown, true},
		{"plain_error", fmt.Errorf("plain"), IsConnectError, false},
		{"nil", nil, IsTimeoutError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(tt.err))
		})
	}
}

func TestIsErrorCode(t *testing.T) {
	err := NewClientErrorWithEndpoint(ErrorTypeAuth, ErrCodeClockSkewSuspected, "Authenticate2FA", "both windows rejected")

	assert.True(t, IsErrorCode(err, ErrCodeClockSkewSuspected))
	assert.False(t, IsErrorCode(err, ErrCodeSecondFactorRejected))
	assert.False(t, IsErrorCode(fmt.Errorf("plain"), ErrCodeClockSkewSuspected))
}
