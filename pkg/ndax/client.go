// Package ndax implements a session-oriented client for the NDAX websocket
// gateway. One Client owns the full session lifecycle: dialing, the login
// handshake with a time-based second factor, request correlation,
// subscription routing, and reconnection with replay.
package ndax

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ndax/internal/ratelimit"
	"ndax/internal/rest"
	"ndax/internal/ws"
	"ndax/pkg/core"
)

// SessionState describes the orchestrator's lifecycle position.
type SessionState int32

const (
	// StateDisconnected means no session is running. Start may be called.
	StateDisconnected SessionState = iota
	// StateConnecting means the first dial of a session is in flight.
	StateConnecting
	// StateAuthenticating means the socket is open and the login handshake
	// is running.
	StateAuthenticating
	// StateAuthenticated means the session is live and operations may be
	// issued.
	StateAuthenticated
	// StateReconnecting means the connection dropped and the client is
	// dialing again with backoff.
	StateReconnecting
	// StateClosed means Stop was called. The client cannot be restarted.
	StateClosed
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"authenticating",
		"authenticated",
		"reconnecting",
		"closed",
	}[s]
}

// transport is the slice of the websocket connection the orchestrator
// drives. Satisfied by *ws.Conn and by test doubles.
type transport interface {
	Frames() <-chan []byte
	Err() error
	WriteMessage(data []byte) error
	Close() error
}

type dialFunc func(ctx context.Context, config ws.Config, logger zerolog.Logger) (transport, error)

// Client is a session-oriented gateway client. It owns the connection
// lifecycle: dialing, the login handshake, request correlation, event
// routing, and reconnection with subscription replay. One Client runs at
// most one live connection at a time.
type Client struct {
	config *core.Config
	creds  core.Credentials
	logger zerolog.Logger

	limiter  *ratelimit.Limiter
	corr     *correlator
	registry *registry
	auth     *authenticator

	dial dialFunc

	state atomic.Int32

	mu           sync.Mutex
	conn         transport
	dispatchDone chan struct{}
	onError      func(error)

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	restOnce sync.Once
	rest     *rest.Client
	restErr  error
}

// New builds a Client from a validated config and credentials. The client
// does not touch the network until Start.
func New(config *core.Config, creds core.Credentials) (*Client, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	logger := zerolog.Nop()
	limiter := ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)

	c := &Client{
		config:   config,
		creds:    creds,
		logger:   logger,
		limiter:  limiter,
		corr:     newCorrelator(limiter, logger),
		registry: newRegistry(logger),
		auth:     newAuthenticator(creds, logger),
		stopChan: make(chan struct{}),
	}
	c.dial = func(ctx context.Context, config ws.Config, logger zerolog.Logger) (transport, error) {
		return ws.Dial(ctx, config, logger)
	}
	return c, nil
}

// SetLogger replaces the default no-op logger. Call before Start.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.corr.logger = logger
	c.registry.logger = logger
	c.auth.logger = logger
}

// OnSessionError registers a callback for terminal session failures, such
// as an authentication rejection during reconnect. Call before Start.
func (c *Client) OnSessionError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// State returns the current session state.
func (c *Client) State() SessionState {
	return SessionState(c.state.Load())
}

func (c *Client) setState(s SessionState) {
	// Closed is terminal; nothing overwrites it.
	for {
		cur := c.state.Load()
		if SessionState(cur) == StateClosed {
			return
		}
		if c.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// SessionToken returns the server-issued token for the live session, or an
// empty string when not authenticated.
func (c *Client) SessionToken() string {
	return c.auth.SessionToken()
}

// UserID returns the server-reported user id for the live session.
func (c *Client) UserID() int64 {
	return c.auth.UserID()
}

// AuthState returns the login handshake state.
func (c *Client) AuthState() AuthState {
	return c.auth.State()
}

// Start dials the gateway and runs the login handshake. It blocks until
// the session is authenticated or the attempt fails with a non-retryable
// error; connect and timeout failures retry with exponential backoff.
// After a successful Start the client maintains the session in the
// background until Stop.
func (c *Client) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		if c.State() == StateClosed {
			return core.ErrClientClosed
		}
		return core.NewClientError(core.ErrorTypeUnknown, core.ErrCodeInvalidState,
			fmt.Sprintf("start from state %s", c.State()))
	}

	if err := c.connect(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.wg.Go(func() { c.run(ctx) })
	return nil
}

// Stop tears the session down. Outstanding requests resolve with a
// shutting-down error, the socket closes, and background goroutines exit.
// Stop is idempotent; the client cannot be restarted afterwards. Never
// call Stop from an event handler.
func (c *Client) Stop() error {
	c.stopOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.stopChan)

		c.corr.failAll(core.NewClientError(core.ErrorTypeShuttingDown, core.ErrCodeShuttingDown,
			"client shutting down"), true)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		restClient := c.rest
		c.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}
		if restClient != nil {
			restClient.Close()
		}

		c.wg.Wait()
		c.logger.Info().Msg("client stopped")
	})
	return nil
}

// connect establishes an authenticated session, retrying transient
// failures with exponential backoff. Authentication rejections and context
// cancellation abort the loop.
func (c *Client) connect(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		select {
		case <-c.stopChan:
			return core.NewClientError(core.ErrorTypeShuttingDown, core.ErrCodeShuttingDown, "client shutting down")
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.establish(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}

		wait := c.backoff(attempt)
		c.logger.Warn().
			Err(err).
			Dur("retry_in", wait).
			Int("attempt", attempt+1).
			Msg("connection attempt failed")

		select {
		case <-time.After(wait):
		case <-c.stopChan:
			return core.NewClientError(core.ErrorTypeShuttingDown, core.ErrCodeShuttingDown, "client shutting down")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// establish performs one dial plus handshake attempt and, on success,
// installs the connection and replays registered subscriptions.
func (c *Client) establish(ctx context.Context) error {
	c.auth.reset()

	conn, err := c.dial(ctx, ws.Config{
		URL:          c.config.URL,
		PingInterval: c.config.PingInterval,
		PongWait:     c.config.PongWait,
		BufferSize:   c.config.BufferSize,
	}, c.logger)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	c.wg.Go(func() {
		defer close(done)
		c.dispatch(conn)
	})

	c.setState(StateAuthenticating)
	if err := c.auth.run(ctx, c.corr, conn, c.config.RequestTimeout); err != nil {
		_ = conn.Close()
		<-done
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.dispatchDone = done
	c.mu.Unlock()
	c.setState(StateAuthenticated)

	c.flushSubscriptions(ctx)
	return nil
}

// run keeps the session alive: when the connection dies it fails pending
// requests, marks subscriptions for replay, and reconnects. It exits on
// Stop or on a non-retryable reconnect failure.
func (c *Client) run(ctx context.Context) {
	for {
		c.mu.Lock()
		done := c.dispatchDone
		conn := c.conn
		c.mu.Unlock()

		if done == nil {
			return
		}
		<-done

		var cause error
		if conn != nil {
			cause = conn.Err()
			_ = conn.Close()
		}

		if c.State() == StateClosed {
			return
		}

		dropErr := cause
		if dropErr == nil {
			dropErr = core.NewClientError(core.ErrorTypeConnect, core.ErrCodeConnect, "connection closed")
		}
		c.corr.failAll(dropErr, false)
		c.registry.resetEpoch()
		c.auth.reset()

		c.mu.Lock()
		c.conn = nil
		c.dispatchDone = nil
		c.mu.Unlock()

		c.setState(StateReconnecting)
		c.logger.Warn().Err(cause).Msg("connection lost, reconnecting")

		if err := c.connect(ctx); err != nil {
			if core.IsShuttingDown(err) || c.State() == StateClosed {
				return
			}
			c.setState(StateDisconnected)
			c.logger.Error().Err(err).Msg("session terminated")

			c.mu.Lock()
			fn := c.onError
			c.mu.Unlock()
			if fn != nil {
				fn(err)
			}
			return
		}
	}
}

// dispatch demultiplexes inbound frames for one connection. Replies and
// errors resolve pending requests; pushes route to subscription handlers.
// It returns when the frame channel closes.
func (c *Client) dispatch(conn transport) {
	for raw := range conn.Frames() {
		frame, err := core.DecodeFrame(raw)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("code", string(core.ErrCodeDecode)).
				Msg("dropping malformed frame")
			continue
		}

		switch frame.Type {
		case core.MessageReply, core.MessageError:
			c.corr.resolve(frame)
		case core.MessageEvent, core.MessageSubscribe, core.MessageUnsubscribe:
			c.registry.route(frame)
		default:
			c.logger.Warn().
				Int("type", int(frame.Type)).
				Str("endpoint", frame.Endpoint).
				Msg("dropping frame with unexpected type")
		}
	}
}

// backoff returns the wait before reconnect attempt n, doubling from the
// base and capped at the configured maximum.
func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 16 {
		attempt = 16
	}
	wait := c.config.ReconnectBaseWait << attempt
	if wait > c.config.ReconnectMaxWait {
		wait = c.config.ReconnectMaxWait
	}
	return wait
}

// retryable reports whether a session failure warrants another dial.
// Connection and timeout failures retry; rejections and cancellation do
// not.
func retryable(err error) bool {
	return core.IsConnectError(err) || core.IsTimeoutError(err)
}

// currentConn returns the live connection, or ErrNotConnected.
func (c *Client) currentConn() (transport, error) {
	if c.State() == StateClosed {
		return nil, core.ErrClientClosed
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, core.ErrNotConnected
	}
	return conn, nil
}
