package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lxzan/gws"
	"github.com/rs/zerolog"

	"ndax/pkg/core"
)

// Config holds configuration options for one websocket connection.
type Config struct {
	// URL is the websocket gateway endpoint to connect to.
	URL string
	// PingInterval is the duration between keep-alive pings.
	PingInterval time.Duration
	// PongWait is the maximum time to wait for a pong before the connection
	// is declared dead.
	PongWait time.Duration
	// BufferSize is the capacity of the inbound frame channel.
	BufferSize int
}

// Conn is a single-use websocket connection. It owns the raw socket,
// runs the keep-alive timer, and delivers inbound messages on Frames().
// The frame channel closes when the socket dies; Err reports the cause.
// Reconnection is the caller's concern: dial a fresh Conn per attempt.
type Conn struct {
	config Config
	state  *State
	socket *gws.Conn
	logger zerolog.Logger

	frames        chan []byte
	connectedChan chan struct{}
	stopChan      chan struct{}
	done          chan struct{}
	wg            sync.WaitGroup

	mu       sync.Mutex
	closeErr error
}

type eventHandler struct {
	conn *Conn
}

// Dial establishes a websocket connection and starts the read and
// keep-alive loops. It blocks until the connection is open, the context is
// cancelled, or the dial fails.
func Dial(ctx context.Context, config Config, logger zerolog.Logger) (*Conn, error) {
	if config.PingInterval == 0 {
		config.PingInterval = 10 * time.Second
	}
	if config.PongWait == 0 {
		config.PongWait = 20 * time.Second
	}
	if config.BufferSize == 0 {
		config.BufferSize = 256
	}

	c := &Conn{
		config:        config,
		state:         &State{},
		logger:        logger,
		frames:        make(chan []byte, config.BufferSize),
		connectedChan: make(chan struct{}),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
	c.state.Store(StateConnecting)

	socket, _, err := gws.NewClient(&eventHandler{conn: c}, &gws.ClientOption{
		Addr: config.URL,
	})
	if err != nil {
		c.state.Store(StateClosed)
		return nil, core.NewClientError(core.ErrorTypeConnect, core.ErrCodeConnect, fmt.Sprintf("dial %s: %v", config.URL, err))
	}

	c.mu.Lock()
	c.socket = socket
	c.mu.Unlock()

	c.wg.Go(func() {
		socket.ReadLoop()
	})
	c.wg.Go(c.pingLoop)

	select {
	case <-c.connectedChan:
		return c, nil
	case <-ctx.Done():
		_ = socket.NetConn().Close()
		c.state.Store(StateClosed)
		return nil, core.NewClientError(core.ErrorTypeConnect, core.ErrCodeConnect, fmt.Sprintf("dial %s: %v", config.URL, ctx.Err()))
	}
}

func (h *eventHandler) OnOpen(socket *gws.Conn) {
	h.conn.state.Store(StateConnected)

	select {
	case <-h.conn.connectedChan:
	default:
		close(h.conn.connectedChan)
	}

	h.conn.logger.Info().
		Str("url", h.conn.config.URL).
		Msg("websocket connected")

	_ = socket.SetDeadline(time.Now().Add(h.conn.config.PingInterval + h.conn.config.PongWait))
}

func (h *eventHandler) OnClose(socket *gws.Conn, err error) {
	h.conn.state.Store(StateClosed)

	h.conn.mu.Lock()
	h.conn.closeErr = h.conn.classifyClose(err)
	h.conn.mu.Unlock()

	h.conn.logger.Warn().
		Err(err).
		Str("url", h.conn.config.URL).
		Msg("websocket disconnected")

	close(h.conn.done)
	close(h.conn.frames)
}

func (h *eventHandler) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.conn.config.PingInterval + h.conn.config.PongWait))
	_ = socket.WritePong(nil)
}

func (h *eventHandler) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(h.conn.config.PingInterval + h.conn.config.PongWait))
}

func (h *eventHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	raw := message.Bytes()
	if len(raw) == 0 {
		return
	}

	// The message buffer is pooled; hand the consumer its own copy.
	data := append([]byte(nil), raw...)

	select {
	case h.conn.frames <- data:
	case <-h.conn.stopChan:
	}
}

// classifyClose maps a read-loop exit cause onto the error taxonomy.
// Called with c.mu held.
func (c *Conn) classifyClose(err error) error {
	select {
	case <-c.stopChan:
		return nil
	default:
	}

	if err == nil {
		return core.NewClientError(core.ErrorTypeConnect, core.ErrCodeConnect, "connection closed by peer")
	}

	var netErr net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewClientError(core.ErrorTypeTimeout, core.ErrCodeKeepAlive, "no pong within grace window")
	}

	return core.NewClientError(core.ErrorTypeConnect, core.ErrCodeConnect, err.Error())
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.SendPing(); err != nil {
				return
			}
		case <-c.done:
			return
		case <-c.stopChan:
			return
		}
	}
}

// Frames returns the inbound message channel. It closes when the socket
// dies; Err reports why.
func (c *Conn) Frames() <-chan []byte {
	return c.frames
}

// Err returns the close cause once Frames has closed. It is nil for a
// locally requested Close.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	return c.state.Load()
}

// IsConnected returns true if the socket is open.
func (c *Conn) IsConnected() bool {
	return c.state.Load() == StateConnected
}

// WriteMessage sends raw bytes as one text frame.
func (c *Conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	socket := c.socket
	c.mu.Unlock()

	if socket == nil || c.state.Load() != StateConnected {
		return core.ErrNotConnected
	}

	return socket.WriteMessage(gws.OpcodeText, data)
}

// SendJSON marshals v and sends it as one text frame.
func (c *Conn) SendJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return c.WriteMessage(data)
}

// SendPing sends a keep-alive ping.
func (c *Conn) SendPing() error {
	c.mu.Lock()
	socket := c.socket
	c.mu.Unlock()

	if socket == nil || c.state.Load() != StateConnected {
		return core.ErrNotConnected
	}

	return socket.WritePing(nil)
}

// Close tears the connection down. It is idempotent and safe to call from
// any state.
func (c *Conn) Close() error {
	if !c.state.CompareAndSwap(StateConnected, StateClosed) &&
		!c.state.CompareAndSwap(StateConnecting, StateClosed) &&
		!c.state.CompareAndSwap(StateDisconnected, StateClosed) {
		return nil
	}

	close(c.stopChan)

	c.mu.Lock()
	if c.socket != nil {
		_ = c.socket.NetConn().Close()
	}
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}
