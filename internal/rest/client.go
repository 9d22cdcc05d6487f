// Package rest reads the venue's public HTTPS market snapshots. It sits
// outside the websocket session: no authentication, no shared state with
// the socket, and its own failure policy behind a circuit breaker.
package rest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"ndax/internal/circuitbreaker"
	"ndax/internal/ratelimit"
	"ndax/pkg/core"
)

// Config holds the REST client options.
type Config struct {
	BaseURL      string        `validate:"required,url"`
	Timeout      time.Duration `validate:"min=1ms"`
	MaxRetries   int           `validate:"min=0"`
	RetryWaitMin time.Duration `validate:"min=0"`
	RetryWaitMax time.Duration `validate:"min=0"`
}

// DefaultConfig returns conservative defaults for the public endpoint.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:      baseURL,
		Timeout:      10 * time.Second,
		MaxRetries:   2,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1 * time.Second,
	}
}

// Client fetches public market data snapshots.
type Client struct {
	client  *resty.Client
	breaker *circuitbreaker.Breaker
	limiter *ratelimit.Limiter
	logger  zerolog.Logger
}

// NewClient creates a REST client with sonic JSON coding, retry policy, and
// a circuit breaker in front of the venue endpoint.
func NewClient(config *Config, logger zerolog.Logger) (*Client, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetTimeout(config.Timeout)
	client.SetRetryCount(config.MaxRetries)
	client.SetRetryWaitTime(config.RetryWaitMin)
	client.SetRetryMaxWaitTime(config.RetryWaitMax)
	client.AddContentTypeEncoder("application/json", func(w io.Writer, v any) error {
		data, err := sonic.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	client.AddContentTypeDecoder("application/json", func(r io.Reader, v any) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		return sonic.Unmarshal(data, v)
	})

	return &Client{
		client: client,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
		}),
		limiter: ratelimit.New(60, time.Minute),
		logger:  logger,
	}, nil
}

// Ticker fetches the full market summary snapshot, keyed by pair symbol.
func (c *Client) Ticker(ctx context.Context) (map[string]core.MarketSummary, error) {
	var out map[string]core.MarketSummary
	if err := c.get(ctx, "/ticker", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	if !c.breaker.Allow() {
		return core.NewClientError(core.ErrorTypeServer, core.ErrCodeServerError, "rest circuit breaker is open")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(result).
		Get(path)

	success := err == nil && resp != nil && resp.IsSuccess()
	c.breaker.Record(success)

	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		c.logger.Warn().
			Str("path", path).
			Int("status", resp.StatusCode()).
			Msg("rest request failed")
		return core.NewClientError(core.ErrorTypeServer, core.ErrCodeServerError,
			fmt.Sprintf("GET %s: status %d", path, resp.StatusCode()))
	}

	return nil
}

// Close releases the underlying HTTP client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
