package ws

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndax/pkg/core"
)

func TestConnState_String(t *testing.T) {
	tests := []struct {
		name  string
		state ConnState
		want  string
	}{
		{"disconnected", StateDisconnected, "disconnected"},
		{"connecting", StateConnecting, "connecting"},
		{"connected", StateConnected, "connected"},
		{"closed", StateClosed, "closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestState_CompareAndSwap(t *testing.T) {
	var s State

	assert.Equal(t, StateDisconnected, s.Load())
	assert.True(t, s.CompareAndSwap(StateDisconnected, StateConnecting))
	assert.False(t, s.CompareAndSwap(StateDisconnected, StateConnected))
	assert.Equal(t, StateConnecting, s.Load())

	s.Store(StateClosed)
	assert.Equal(t, StateClosed, s.Load())
}

func TestDial_ConnectionRefused(t *testing.T) {
	// Nothing listens on this port.
	_, err := Dial(context.Background(), Config{URL: "ws://127.0.0.1:1/WSGateway/"}, zerolog.Nop())

	require.Error(t, err)
	assert.True(t, core.IsConnectError(err))
	assert.True(t, core.IsErrorCode(err, core.ErrCodeConnect))
}

func TestConn_WriteBeforeConnect(t *testing.T) {
	c := &Conn{state: &State{}}

	assert.ErrorIs(t, c.WriteMessage([]byte("{}")), core.ErrNotConnected)
	assert.ErrorIs(t, c.SendPing(), core.ErrNotConnected)
	assert.ErrorIs(t, c.SendJSON(map[string]int{"m": 0}), core.ErrNotConnected)
}

func TestConn_ClassifyClose(t *testing.T) {
	tests := []struct {
		name     string
		stopped  bool
		cause    error
		wantNil  bool
		wantCode core.ErrorCode
	}{
		{"local_close", true, nil, true, ""},
		{"peer_close", false, nil, false, core.ErrCodeConnect},
		{"deadline", false, os.ErrDeadlineExceeded, false, core.ErrCodeKeepAlive},
		{"other", false, assert.AnError, false, core.ErrCodeConnect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Conn{state: &State{}, stopChan: make(chan struct{})}
			if tt.stopped {
				close(c.stopChan)
			}

			err := c.classifyClose(tt.cause)
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, core.IsErrorCode(err, tt.wantCode))
		})
	}
}

func TestConn_KeepAliveTimeoutIsRetryable(t *testing.T) {
	c := &Conn{state: &State{}, stopChan: make(chan struct{})}

	err := c.classifyClose(os.ErrDeadlineExceeded)
	assert.True(t, core.IsTimeoutError(err))
	assert.False(t, core.IsConnectError(err))
}

func TestConn_CloseIdempotent(t *testing.T) {
	c := &Conn{state: &State{}, stopChan: make(chan struct{})}
	c.state.Store(StateDisconnected)

	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())
	assert.False(t, c.IsConnected())

	// Second close is a no-op.
	require.NoError(t, c.Close())
}

func TestDial_Defaults(t *testing.T) {
	// A refused dial still exercises the config defaulting path.
	start := time.Now()
	_, err := Dial(context.Background(), Config{URL: "ws://127.0.0.1:1/"}, zerolog.Nop())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
