package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, "wss://api.ndax.io/WSGateway/", config.URL)
	assert.Equal(t, int64(1), config.OMSID)
	assert.Equal(t, 10*time.Second, config.RequestTimeout)
	assert.Less(t, config.PingInterval, config.PongWait)
	assert.Less(t, config.ReconnectBaseWait, config.ReconnectMaxWait)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty_url", func(c *Config) { c.URL = "" }, true},
		{"not_a_url", func(c *Config) { c.URL = "not a url" }, true},
		{"zero_oms", func(c *Config) { c.OMSID = 0 }, true},
		{"zero_timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"zero_buffer", func(c *Config) { c.BufferSize = 0 }, true},
		{"bad_log_level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"empty_log_level", func(c *Config) { c.LogLevel = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Chaining(t *testing.T) {
	config := DefaultConfig().
		WithURL("wss://example.test/gateway").
		WithOMSID(2).
		WithRequestTimeout(5 * time.Second).
		WithKeepAlive(3*time.Second, 9*time.Second).
		WithReconnectWait(500*time.Millisecond, 10*time.Second).
		WithRateLimit(100, time.Minute)

	require.NoError(t, config.Validate())
	assert.Equal(t, "wss://example.test/gateway", config.URL)
	assert.Equal(t, int64(2), config.OMSID)
	assert.Equal(t, 5*time.Second, config.RequestTimeout)
	assert.Equal(t, 3*time.Second, config.PingInterval)
	assert.Equal(t, 500*time.Millisecond, config.ReconnectBaseWait)
	assert.Equal(t, 100, config.RateLimitRequests)
}

func TestCredentials_Validate(t *testing.T) {
	valid := Credentials{AccountID: 7, Username: "trader", Password: "hunter2", TwoFactorSecret: "JBSWY3DPEHPK3PXP"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Credentials)
	}{
		{"missing_account", func(c *Credentials) { c.AccountID = 0 }},
		{"missing_username", func(c *Credentials) { c.Username = "" }},
		{"missing_password", func(c *Credentials) { c.Password = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := valid
			tt.mutate(&creds)
			assert.Error(t, creds.Validate())
		})
	}
}

func TestCredentials_StringMasksSecrets(t *testing.T) {
	creds := Credentials{AccountID: 7, Username: "trader99", Password: "hunter2", TwoFactorSecret: "JBSWY3DPEHPK3PXP"}

	s := creds.String()
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "JBSWY3DPEHPK3PXP")
	assert.NotContains(t, s, "trader99")
}
