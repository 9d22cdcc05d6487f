package core

import "fmt"

// Credentials holds the login material for one exchange account. Values are
// supplied by the caller at construction time and are immutable afterwards;
// the engine never reads environment files itself and never logs secrets.
type Credentials struct {
	// AccountID is the numeric account identifier used in account-scoped
	// requests.
	AccountID int64 `json:"account_id" validate:"required"`
	// Username is the login name.
	Username string `json:"username" validate:"required"`
	// Password is the login password.
	Password string `json:"-" validate:"required"`
	// TwoFactorSecret is the shared base32 secret used to derive the
	// time-based second-factor code.
	TwoFactorSecret string `json:"-" validate:"required"`
}

// Validate reports whether every required field is present.
func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("credentials: %w", err)
	}
	return nil
}

// String masks all secret material.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccountID:%d, Username:%s}", c.AccountID, maskValue(c.Username))
}

func maskValue(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}
