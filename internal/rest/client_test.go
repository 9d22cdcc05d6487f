package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndax/pkg/core"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("https://core.ndax.io/v1")

	assert.Equal(t, "https://core.ndax.io/v1", config.BaseURL)
	assert.Equal(t, 2, config.MaxRetries)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(&Config{BaseURL: ""}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewClient(DefaultConfig("not a url"), zerolog.Nop())
	assert.Error(t, err)
}

func TestClient_Ticker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticker", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"BTCCAD": {"id":1,"last":"61234.5","lowestAsk":"61240","highestBid":"61230","baseVolume":"12.5","isFrozen":"0"},
			"ETHCAD": {"id":2,"last":"3120.25","lowestAsk":"3121","highestBid":"3119","baseVolume":"140","isFrozen":"0"}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(DefaultConfig(server.URL), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	summary, err := client.Ticker(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 2)

	btc := summary["BTCCAD"]
	assert.Equal(t, int64(1), btc.ID)
	assert.Equal(t, "61234.5", btc.Last.String())
	assert.Equal(t, "61230", btc.HighestBid.String())
	assert.Equal(t, "0", btc.IsFrozen)
}

func TestClient_Ticker_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := DefaultConfig(server.URL)
	config.MaxRetries = 0

	client, err := NewClient(config, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Ticker(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsErrorCode(err, core.ErrCodeServerError))
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := DefaultConfig(server.URL)
	config.MaxRetries = 0

	client, err := NewClient(config, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	// The breaker trips after five consecutive failures; the sixth call
	// never reaches the server.
	for range 5 {
		_, err := client.Ticker(context.Background())
		require.Error(t, err)
	}
	served := hits

	_, err = client.Ticker(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
	assert.Equal(t, served, hits)
}
