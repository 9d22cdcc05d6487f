package core

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config contains all configuration options for a client session.
type Config struct {
	// URL is the websocket gateway endpoint.
	URL string `json:"url" validate:"required,url"`
	// RESTBaseURL is the public HTTPS endpoint used for market snapshots
	// outside the socket.
	RESTBaseURL string `json:"rest_base_url" validate:"required,url"`
	// OMSID identifies the order management system; the production gateway
	// runs a single OMS with id 1.
	OMSID int64 `json:"oms_id" validate:"min=1"`

	// RequestTimeout is the default per-request deadline for one-shot calls.
	RequestTimeout time.Duration `json:"request_timeout" validate:"min=1ms"`

	// PingInterval is the keep-alive ping cadence.
	PingInterval time.Duration `json:"ping_interval" validate:"min=1ms"`
	// PongWait is the grace window for a pong before the connection is
	// declared dead.
	PongWait time.Duration `json:"pong_wait" validate:"min=1ms"`

	// ReconnectBaseWait is the first reconnect backoff interval.
	ReconnectBaseWait time.Duration `json:"reconnect_base_wait" validate:"min=1ms"`
	// ReconnectMaxWait caps the exponential backoff.
	ReconnectMaxWait time.Duration `json:"reconnect_max_wait" validate:"min=1ms"`

	// BufferSize is the inbound frame channel capacity.
	BufferSize int `json:"buffer_size" validate:"min=1"`

	RateLimitRequests int           `json:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" validate:"min=1ms"`

	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config with conservative defaults: 10s request
// timeout, 10s/20s keep-alive, exponential reconnect backoff from 1s capped
// at 30s, 500 requests per minute.
func DefaultConfig() *Config {
	return &Config{
		URL:         "wss://api.ndax.io/WSGateway/",
		RESTBaseURL: "https://core.ndax.io/v1",
		OMSID:       1,

		RequestTimeout: 10 * time.Second,

		PingInterval: 10 * time.Second,
		PongWait:     20 * time.Second,

		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  30 * time.Second,

		BufferSize: 256,

		RateLimitRequests: 500,
		RateLimitPeriod:   time.Minute,

		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// WithURL sets the gateway endpoint and returns the config for chaining.
func (c *Config) WithURL(url string) *Config {
	c.URL = url
	return c
}

// WithOMSID sets the order management system id and returns the config for chaining.
func (c *Config) WithOMSID(id int64) *Config {
	c.OMSID = id
	return c
}

// WithRequestTimeout sets the one-shot request deadline and returns the config for chaining.
func (c *Config) WithRequestTimeout(timeout time.Duration) *Config {
	c.RequestTimeout = timeout
	return c
}

// WithKeepAlive sets the ping cadence and pong grace window and returns the
// config for chaining.
func (c *Config) WithKeepAlive(pingInterval, pongWait time.Duration) *Config {
	c.PingInterval = pingInterval
	c.PongWait = pongWait
	return c
}

// WithReconnectWait sets the backoff bounds and returns the config for chaining.
func (c *Config) WithReconnectWait(base, max time.Duration) *Config {
	c.ReconnectBaseWait = base
	c.ReconnectMaxWait = max
	return c
}

// WithRateLimit sets the outgoing request budget and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}
