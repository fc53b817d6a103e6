package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrNegativePrice   = errors.New("unit price must not be negative")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// LineItem is one priced cart line.
type LineItem struct {
	UnitPrice Cents
	Quantity  int
}

// Total is the extended price of the line.
func (l LineItem) Total() Cents {
	return l.UnitPrice * Cents(l.Quantity)
}

// Totals is the result of a single calculation. Values are never modified afterwards.
type Totals struct {
	Subtotal Cents `json:"subtotal"`
	Tax      Cents `json:"taxAmount"`
	Shipping Cents `json:"shippingAmount"`
	Discount Cents `json:"discountAmount"`
	Total    Cents `json:"totalAmount"`
}

// ComputeTotals prices items under policy.
//
//	subtotal = sum(unitPrice * quantity)
//	tax      = round_half_up(subtotal * taxRate)
//	total    = subtotal + tax + shipping - discount
//
// The discount is capped at subtotal + tax + shipping so the total is never negative.
// Identical inputs always produce identical Totals.
func ComputeTotals(items []LineItem, policy Policy) (Totals, error) {
	if err := policy.Validate(); err != nil {
		return Totals{}, err
	}

	var subtotal Cents
	for i, item := range items {
		if item.UnitPrice < 0 {
			return Totals{}, fmt.Errorf("line %d: %w", i, ErrNegativePrice)
		}
		if item.Quantity <= 0 {
			return Totals{}, fmt.Errorf("line %d: %w", i, ErrInvalidQuantity)
		}
		subtotal += item.Total()
	}

	tax := FromDecimal(subtotal.Decimal().Mul(policy.TaxRate))
	gross := subtotal + tax + policy.ShippingFlat
	discount := policy.Discount
	if discount > gross {
		discount = gross
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: policy.ShippingFlat,
		Discount: discount,
		Total:    gross - discount,
	}, nil
}
