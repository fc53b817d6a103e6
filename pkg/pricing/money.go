// Package pricing derives order totals from cart lines and a pricing policy.
//
// Money is carried as whole cents. The only fractional step is tax: it is computed
// exactly with decimal arithmetic and rounded half away from zero to the nearest cent,
// after which every other figure is plain integer addition.
package pricing

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in minor units.
type Cents int64

// FromDecimal converts a major-unit amount such as 29.99 into cents, rounding half away
// from zero when the value carries more than two decimal places.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(2).Round(0).IntPart())
}

// ParseCents parses a major-unit string such as "29.99".
func ParseCents(value string) (Cents, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return FromDecimal(d), nil
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount with exactly two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a JSON string with two decimal places.
func (c Cents) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either a quoted major-unit string or a bare number.
func (c *Cents) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	parsed, err := ParseCents(string(raw))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
