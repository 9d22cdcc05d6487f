package ndax

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ndax/internal/totp"
	"ndax/pkg/core"
)

// AuthState represents the progress of the login handshake.
type AuthState int32

const (
	// AuthDisconnected means no handshake is in progress.
	AuthDisconnected AuthState = iota
	// AuthAwaitingChallenge means credentials were sent and the challenge
	// reply is outstanding.
	AuthAwaitingChallenge
	// AuthAwaitingSecondFactor means the time-based code was sent.
	AuthAwaitingSecondFactor
	// AuthAuthenticated means the gateway accepted the session.
	AuthAuthenticated
	// AuthFailed means the gateway rejected the attempt.
	AuthFailed
)

// String returns the string representation of the auth state.
func (s AuthState) String() string {
	return [...]string{
		"disconnected",
		"awaiting_challenge",
		"awaiting_second_factor",
		"authenticated",
		"auth_failed",
	}[s]
}

// authenticator drives the login handshake: credentials, then the
// time-based second-factor code, then session token storage. After a
// reconnect the orchestrator reruns the whole sequence from the top.
type authenticator struct {
	creds  core.Credentials
	logger zerolog.Logger

	state atomic.Int32

	mu           sync.Mutex
	sessionToken string
	userID       int64
}

func newAuthenticator(creds core.Credentials, logger zerolog.Logger) *authenticator {
	return &authenticator{creds: creds, logger: logger}
}

// State returns the current handshake state.
func (a *authenticator) State() AuthState {
	return AuthState(a.state.Load())
}

func (a *authenticator) setState(s AuthState) {
	a.state.Store(int32(s))
}

// SessionToken returns the server-issued token for the current session, or
// an empty string before authentication.
func (a *authenticator) SessionToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionToken
}

// UserID returns the server-reported user id for the current session.
func (a *authenticator) UserID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID
}

// run executes the handshake over the correlator. It returns nil once the
// gateway accepts the session, or an auth error naming the rejection
// reason. Transport and timeout failures pass through unchanged so the
// caller can tell reconnect-eligible failures from rejections.
func (a *authenticator) run(ctx context.Context, corr *correlator, conn sender, timeout time.Duration) error {
	a.setState(AuthAwaitingChallenge)

	reply, err := a.request(ctx, corr, conn, core.EndpointAuthenticateUser, core.AuthenticateUserRequest{
		Username: a.creds.Username,
		Password: a.creds.Password,
	}, timeout)
	if err != nil {
		a.setState(AuthFailed)
		return err
	}

	if reply.Authenticated && !reply.Requires2FA {
		a.succeed(reply)
		return nil
	}
	if !reply.Requires2FA {
		a.setState(AuthFailed)
		return core.NewClientErrorWithEndpoint(core.ErrorTypeAuth, core.ErrCodeCredentialsRejected,
			core.EndpointAuthenticateUser, reason(reply, "credentials rejected"))
	}

	a.setState(AuthAwaitingSecondFactor)

	now := time.Now()
	code, err := totp.Code(a.creds.TwoFactorSecret, now)
	if err != nil {
		a.setState(AuthFailed)
		return fmt.Errorf("second factor: %w", err)
	}

	reply, err = a.request(ctx, corr, conn, core.EndpointAuthenticate2FA, core.Authenticate2FARequest{Code: code}, timeout)
	if err != nil {
		a.setState(AuthFailed)
		return err
	}
	if reply.Authenticated {
		a.succeed(reply)
		return nil
	}

	// The current window's code was rejected. Probe the previous window:
	// acceptance means the local clock runs ahead of the gateway's by one
	// time step.
	prev, perr := totp.PreviousCode(a.creds.TwoFactorSecret, now)
	if perr == nil && prev != code {
		probe, err := a.request(ctx, corr, conn, core.EndpointAuthenticate2FA, core.Authenticate2FARequest{Code: prev}, timeout)
		if err == nil && probe.Authenticated {
			a.logger.Warn().Msg("second factor accepted for previous time window, local clock may run fast")
			a.succeed(probe)
			return nil
		}
		a.setState(AuthFailed)
		return core.NewClientErrorWithEndpoint(core.ErrorTypeAuth, core.ErrCodeClockSkewSuspected,
			core.EndpointAuthenticate2FA,
			reason(reply, "codes for two adjacent time windows rejected; check the local clock and the shared secret"))
	}

	a.setState(AuthFailed)
	return core.NewClientErrorWithEndpoint(core.ErrorTypeAuth, core.ErrCodeSecondFactorRejected,
		core.EndpointAuthenticate2FA, reason(reply, "second-factor code rejected"))
}

// reset clears session state ahead of a fresh handshake.
func (a *authenticator) reset() {
	a.setState(AuthDisconnected)
	a.mu.Lock()
	a.sessionToken = ""
	a.userID = 0
	a.mu.Unlock()
}

func (a *authenticator) succeed(reply *core.AuthReply) {
	a.mu.Lock()
	a.sessionToken = reply.SessionToken
	a.userID = reply.UserID
	a.mu.Unlock()
	a.setState(AuthAuthenticated)

	a.logger.Info().
		Int64("user_id", reply.UserID).
		Msg("session authenticated")
}

func (a *authenticator) request(ctx context.Context, corr *correlator, conn sender, endpoint string, payload any, timeout time.Duration) (*core.AuthReply, error) {
	call, err := corr.submit(ctx, conn, endpoint, payload, timeout)
	if err != nil {
		return nil, err
	}

	data, err := call.Wait(ctx)
	if err != nil {
		return nil, err
	}

	var reply core.AuthReply
	if err := sonicUnmarshal(data, &reply, endpoint); err != nil {
		return nil, err
	}
	return &reply, nil
}

func reason(reply *core.AuthReply, fallback string) string {
	if reply != nil && reply.ErrorMessage != "" {
		return reply.ErrorMessage
	}
	return fallback
}
