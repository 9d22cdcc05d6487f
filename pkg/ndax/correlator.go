package ndax

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ndax/internal/ratelimit"
	"ndax/pkg/core"
)

// sender is the slice of the transport the correlator needs.
type sender interface {
	WriteMessage(data []byte) error
}

type result struct {
	payload []byte
	err     error
}

// Call is the handle for one outstanding request. It resolves exactly once:
// with the reply payload, a gateway error, a timeout, or the shutting-down
// reason.
type Call struct {
	// Endpoint is the gateway operation this call targets.
	Endpoint string
	// Sequence is the frame sequence number allocated to this call.
	Sequence int64

	done chan result
}

// Wait blocks until the call resolves or the context is cancelled.
func (c *Call) Wait(ctx context.Context) ([]byte, error) {
	select {
	case r := <-c.done:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type pendingRequest struct {
	call   *Call
	timer  *time.Timer
	sentAt time.Time
}

// correlator assigns sequence numbers to outgoing requests and matches
// inbound Reply and Error frames back to their callers. Gateway clients use
// even sequence numbers starting at 2; the counter is monotonic for the
// session lifetime, so a number is never reused while outstanding.
type correlator struct {
	logger  zerolog.Logger
	limiter *ratelimit.Limiter

	seq atomic.Int64

	mu      sync.Mutex
	pending map[int64]*pendingRequest
	closed  error
}

func newCorrelator(limiter *ratelimit.Limiter, logger zerolog.Logger) *correlator {
	return &correlator{
		logger:  logger,
		limiter: limiter,
		pending: make(map[int64]*pendingRequest),
	}
}

// submit allocates the next sequence number, records the pending request,
// and sends the encoded frame. Safe for concurrent use; it never blocks on
// the dispatch loop.
func (c *correlator) submit(ctx context.Context, conn sender, endpoint string, payload any, timeout time.Duration) (*Call, error) {
	return c.submitType(ctx, conn, core.MessageRequest, endpoint, payload, timeout)
}

// submitType is submit with an explicit frame type, for subscribe and
// unsubscribe requests. Replies correlate by sequence regardless of the
// outbound type.
func (c *correlator) submitType(ctx context.Context, conn sender, mtype core.MessageType, endpoint string, payload any, timeout time.Duration) (*Call, error) {
	if conn == nil {
		return nil, core.ErrNotConnected
	}

	if err := c.limiter.WaitEndpoint(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	seq := c.seq.Add(2)

	data, err := core.EncodeFrame(mtype, seq, endpoint, payload)
	if err != nil {
		return nil, err
	}

	call := &Call{
		Endpoint: endpoint,
		Sequence: seq,
		done:     make(chan result, 1),
	}
	p := &pendingRequest{call: call, sentAt: time.Now()}

	c.mu.Lock()
	if c.closed != nil {
		err := c.closed
		c.mu.Unlock()
		return nil, err
	}
	c.pending[seq] = p
	p.timer = time.AfterFunc(timeout, func() { c.expire(seq) })
	c.mu.Unlock()

	if err := conn.WriteMessage(data); err != nil {
		c.discard(seq, p)
		return nil, fmt.Errorf("send %s: %w", endpoint, err)
	}

	c.logger.Debug().
		Int64("sequence", seq).
		Str("endpoint", endpoint).
		Msg("request sent")

	return call, nil
}

// resolve matches an inbound Reply or Error frame to its pending request
// and fulfills it exactly once. Frames with no match are discarded and
// reported as anomalies; they are not fatal.
func (c *correlator) resolve(frame *core.Frame) {
	c.mu.Lock()
	p, ok := c.pending[frame.Sequence]
	if ok {
		delete(c.pending, frame.Sequence)
		p.timer.Stop()
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warn().
			Int64("sequence", frame.Sequence).
			Str("endpoint", frame.Endpoint).
			Str("code", string(core.ErrCodeUnmatched)).
			Msg("dropping frame with no pending request")
		return
	}

	if frame.Type == core.MessageError {
		var body core.GenericResult
		_ = frame.DecodePayload(&body)
		msg := body.ErrorMessage
		if msg == "" {
			msg = "request failed"
		}
		p.call.done <- result{err: core.NewClientErrorWithEndpoint(core.ErrorTypeServer, core.ErrCodeServerError, frame.Endpoint, msg)}
		return
	}

	p.call.done <- result{payload: frame.Payload}
}

// expire resolves a pending request with a timeout. A reply arriving later
// finds no pending entry and is discarded by resolve.
func (c *correlator) expire(seq int64) {
	c.mu.Lock()
	p, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	p.call.done <- result{err: core.NewClientErrorWithEndpoint(
		core.ErrorTypeTimeout, core.ErrCodeTimeout, p.call.Endpoint,
		fmt.Sprintf("no reply after %s", time.Since(p.sentAt).Round(time.Millisecond)))}
}

// failAll resolves every outstanding request with err. When terminal is
// true, later submits are rejected with the same error.
func (c *correlator) failAll(err error, terminal bool) {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[int64]*pendingRequest)
	if terminal {
		c.closed = err
	}
	c.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		p.call.done <- result{err: err}
	}
}

// outstanding returns the number of unresolved requests.
func (c *correlator) outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *correlator) discard(seq int64, p *pendingRequest) {
	c.mu.Lock()
	if cur, ok := c.pending[seq]; ok && cur == p {
		delete(c.pending, seq)
		p.timer.Stop()
	}
	c.mu.Unlock()
}
