package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/pricing"
)

// RecentOrder is a row in the admin recent orders table.
type RecentOrder struct {
	ID            uuid.UUID         `json:"id"`
	OrderNumber   string            `json:"orderNumber"`
	Customer      string            `json:"customer"`
	CustomerEmail string            `json:"customerEmail"`
	Total         pricing.Cents     `json:"total"`
	Status        enums.OrderStatus `json:"status"`
	Date          time.Time         `json:"date"`
}

// DailySales is one calendar day of the sales chart.
type DailySales struct {
	Date   string        `json:"date"`
	Sales  pricing.Cents `json:"sales"`
	Orders int64         `json:"orders"`
}

// TopProduct ranks a product by revenue across all order items.
type TopProduct struct {
	ID      uuid.UUID     `json:"id"`
	Name    string        `json:"name"`
	Sales   int64         `json:"sales"`
	Revenue pricing.Cents `json:"revenue"`
}

// Summary is the admin dashboard payload.
type Summary struct {
	TotalSales     pricing.Cents `json:"totalSales"`
	TotalOrders    int64         `json:"totalOrders"`
	TotalCustomers int64         `json:"totalCustomers"`
	TotalProducts  int64         `json:"totalProducts"`
	RecentOrders   []RecentOrder `json:"recentOrders"`
	SalesData      []DailySales  `json:"salesData"`
	TopProducts    []TopProduct  `json:"topProducts"`
}
