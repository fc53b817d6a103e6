package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/pagination"
	"github.com/papelisco/storefront/pkg/pricing"
	"github.com/papelisco/storefront/pkg/types"
)

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	ID          uuid.UUID     `json:"id"`
	ProductID   uuid.UUID     `json:"productId"`
	ProductName string        `json:"productName"`
	UnitPrice   pricing.Cents `json:"price"`
	Quantity    int           `json:"quantity"`
	Total       pricing.Cents `json:"total"`
}

// OrderDTO is the order shape returned to customers and admins.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	UserID          uuid.UUID           `json:"userId"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"paymentStatus"`
	PaymentMethod   string              `json:"paymentMethod"`
	CardNetwork     *string             `json:"cardNetwork,omitempty"`
	CardLast4       *string             `json:"cardLast4,omitempty"`
	Currency        string              `json:"currency"`
	Subtotal        pricing.Cents       `json:"subtotal"`
	TaxAmount       pricing.Cents       `json:"taxAmount"`
	ShippingAmount  pricing.Cents       `json:"shippingAmount"`
	DiscountAmount  pricing.Cents       `json:"discountAmount"`
	TotalAmount     pricing.Cents       `json:"totalAmount"`
	ShippingAddress types.Address       `json:"shippingAddress"`
	BillingAddress  *types.Address      `json:"billingAddress,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// ListFilters narrows a customer's order history.
type ListFilters struct {
	Status *enums.OrderStatus
}

// OrderList is a page of orders plus pagination metadata.
type OrderList struct {
	Orders     []OrderDTO      `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

// UpdateStatusRequest is the admin status change body.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func NewOrderDTO(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentMethod:   o.PaymentMethod,
		CardNetwork:     o.CardNetwork,
		CardLast4:       o.CardLast4,
		Currency:        o.Currency,
		Subtotal:        pricing.Cents(o.SubtotalCents),
		TaxAmount:       pricing.Cents(o.TaxCents),
		ShippingAmount:  pricing.Cents(o.ShippingCents),
		DiscountAmount:  pricing.Cents(o.DiscountCents),
		TotalAmount:     pricing.Cents(o.TotalCents),
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Notes:           o.Notes,
		Items:           make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   pricing.Cents(item.UnitPriceCents),
			Quantity:    item.Quantity,
			Total:       pricing.Cents(item.TotalCents),
		})
	}
	return dto
}
