package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/internal/products"
)

// ItemDTO is a saved product.
type ItemDTO struct {
	ID        uuid.UUID           `json:"id"`
	ProductID uuid.UUID           `json:"productId"`
	Product   products.ProductDTO `json:"product"`
	CreatedAt time.Time           `json:"createdAt"`
}

// AddRequest is the body of POST /wishlist.
type AddRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
}
