package checkout

import (
	"github.com/papelisco/storefront/pkg/types"
)

// ItemRequest is one requested cart line. Prices are never accepted from clients.
type ItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
}

// CardRequest is the raw card payload, checked by the card validator rather than struct tags.
// Only the network and last four digits are kept.
type CardRequest struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
	Name   string `json:"name" validate:"max=100"`
}

// Request is the POST /checkout body.
type Request struct {
	Items           []ItemRequest  `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingAddress types.Address  `json:"shippingAddress" validate:"required"`
	BillingAddress  *types.Address `json:"billingAddress,omitempty" validate:"omitempty"`
	Card            CardRequest    `json:"card"`
	Notes           *string        `json:"notes,omitempty" validate:"omitempty,max=500"`
}
