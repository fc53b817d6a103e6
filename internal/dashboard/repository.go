package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
)

type orderPoint struct {
	CreatedAt  time.Time
	Status     enums.OrderStatus
	TotalCents int64
}

type productRevenue struct {
	ProductID uuid.UUID
	Name      string
	Quantity  int64
	Revenue   int64
}

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DeliveredSales sums totals of delivered orders.
func (r *Repository) DeliveredSales(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total_cents), 0)").
		Where("status = ?", enums.OrderStatusDelivered).
		Scan(&total).Error
	return total, err
}

func (r *Repository) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&n).Error
	return n, err
}

func (r *Repository) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", enums.UserRoleCustomer).Count(&n).Error
	return n, err
}

func (r *Repository) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&n).Error
	return n, err
}

// RecentOrders returns the newest orders with their customer.
func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// OrdersSince returns the fields needed to chart orders created at or after since.
func (r *Repository) OrdersSince(ctx context.Context, since time.Time) ([]orderPoint, error) {
	var rows []orderPoint
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("created_at, status, total_cents").
		Where("created_at >= ?", since).
		Scan(&rows).Error
	return rows, err
}

// TopProducts ranks products by the revenue of their order items.
func (r *Repository) TopProducts(ctx context.Context, limit int) ([]productRevenue, error) {
	var rows []productRevenue
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("product_id, MAX(product_name) AS name, SUM(quantity) AS quantity, SUM(total_cents) AS revenue").
		Group("product_id").
		Order("revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
