// Package totp derives the time-based second-factor codes required by the
// gateway login handshake. Codes follow the standard 30-second time-step
// counter algorithm, so generation is deterministic given the shared secret
// and the time window.
package totp

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// Period is the time-step used by the gateway's second factor.
const Period = 30 * time.Second

// Code returns the six-digit code for the window containing at.
func Code(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCode(Normalize(secret), at)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return code, nil
}

// PreviousCode returns the code for the window immediately before at. Used
// to probe for clock skew when the gateway rejects the current window's code.
func PreviousCode(secret string, at time.Time) (string, error) {
	return Code(secret, at.Add(-Period))
}

// Normalize prepares a shared secret for decoding: strips spaces, upper-cases,
// and restores base32 padding that issuers commonly omit.
func Normalize(secret string) string {
	s := strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	if m := len(s) % 8; m != 0 {
		s += strings.Repeat("=", 8-m)
	}
	return s
}
