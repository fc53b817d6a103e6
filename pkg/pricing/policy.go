package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeTaxRate  = errors.New("tax rate must not be negative")
	ErrNegativeShipping = errors.New("shipping must not be negative")
	ErrNegativeDiscount = errors.New("discount must not be negative")
)

// Policy holds the order-level constants applied to every checkout.
type Policy struct {
	TaxRate      decimal.Decimal
	ShippingFlat Cents
	Discount     Cents
}

// DefaultPolicy charges 10% tax, free shipping and no discount.
func DefaultPolicy() Policy {
	return Policy{TaxRate: decimal.RequireFromString("0.10")}
}

// NewPolicy builds a Policy from configuration values.
func NewPolicy(taxRate string, shippingCents, discountCents int64) (Policy, error) {
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return Policy{}, fmt.Errorf("parse tax rate %q: %w", taxRate, err)
	}
	p := Policy{TaxRate: rate, ShippingFlat: Cents(shippingCents), Discount: Cents(discountCents)}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate rejects negative policy values.
func (p Policy) Validate() error {
	if p.TaxRate.IsNegative() {
		return ErrNegativeTaxRate
	}
	if p.ShippingFlat < 0 {
		return ErrNegativeShipping
	}
	if p.Discount < 0 {
		return ErrNegativeDiscount
	}
	return nil
}
