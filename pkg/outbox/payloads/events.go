// Package payloads holds the data section of each published event.
package payloads

import (
	"github.com/google/uuid"

	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/pricing"
)

// OrderCreatedEvent is emitted when checkout places an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID     `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	UserID      uuid.UUID     `json:"user_id"`
	ItemCount   int           `json:"item_count"`
	TotalAmount pricing.Cents `json:"total_amount"`
	Currency    string        `json:"currency"`
}

// OrderStatusChangedEvent is emitted when an admin moves an order along its lifecycle.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// UserRegisteredEvent is emitted when a new account is created.
type UserRegisteredEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
}
