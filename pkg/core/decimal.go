package core

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an arbitrary-precision decimal that unmarshals from either a
// JSON number or a quoted numeric string. The gateway emits prices and
// quantities as bare numbers; parsing them through apd avoids float rounding.
type Decimal struct {
	apd.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		d.Decimal = apd.Decimal{}
		return nil
	}
	if _, _, err := apd.BaseContext.SetString(&d.Decimal, s); err != nil {
		return fmt.Errorf("set decimal from %q: %w", s, err)
	}
	return nil
}

// MarshalJSON implements json.Marshaler, emitting a bare number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.Text('f')), nil
}

// ParseDecimal parses a numeric string into dest. An empty string leaves
// dest zero.
func ParseDecimal(dest *apd.Decimal, s string) error {
	if s == "" {
		*dest = apd.Decimal{}
		return nil
	}

	_, _, err := apd.BaseContext.SetString(dest, s)
	if err != nil {
		return fmt.Errorf("set decimal from string: %w", err)
	}

	return nil
}
