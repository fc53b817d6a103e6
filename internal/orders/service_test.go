package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/db/dbtest"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/outbox"
	"github.com/papelisco/storefront/pkg/pagination"
	"github.com/papelisco/storefront/pkg/types"
)

func newTestService(t *testing.T) (*gorm.DB, Service) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), outbox.NewService(outbox.NewRepository(conn), logger.Nop()))
	require.NoError(t, err)
	return conn, svc
}

func seedOrder(t *testing.T, conn *gorm.DB, user models.User, product models.Product, status enums.OrderStatus, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		OrderNumber:     fmt.Sprintf("ORD-%d-%s", createdAt.UnixMilli(), uuid.NewString()[:9]),
		UserID:          user.ID,
		Status:          status,
		PaymentStatus:   enums.PaymentStatusPaid,
		PaymentMethod:   "card",
		Currency:        "USD",
		SubtotalCents:   product.PriceCents,
		TaxCents:        product.PriceCents / 10,
		TotalCents:      product.PriceCents + product.PriceCents/10,
		ShippingAddress: types.Address{FirstName: "Ada", LastName: "L", Address1: "1 Main St", City: "Austin", State: "TX", PostalCode: "73301", Country: "US"},
		Items: []models.OrderItem{{
			ProductID:      product.ID,
			ProductName:    product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       1,
			TotalCents:     product.PriceCents,
		}},
	}
	require.NoError(t, NewRepository(conn).Create(context.Background(), &order))
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).UpdateColumn("created_at", createdAt).Error)
	return order
}

func TestListPaginatesAndFilters(t *testing.T) {
	conn, svc := newTestService(t)
	user := dbtest.SeedUser(t, conn, "ada@example.com")
	other := dbtest.SeedUser(t, conn, "grace@example.com")
	cat := dbtest.SeedCategory(t, conn, "books")
	book := dbtest.SeedProduct(t, conn, cat, "novel", 1999)

	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	var newest models.Order
	for i := 0; i < 3; i++ {
		newest = seedOrder(t, conn, user, book, enums.OrderStatusPending, base.Add(time.Duration(i)*time.Hour))
	}
	seedOrder(t, conn, user, book, enums.OrderStatusDelivered, base.Add(-time.Hour))
	seedOrder(t, conn, other, book, enums.OrderStatusPending, base)

	page, err := svc.List(context.Background(), user.ID, pagination.Params{Page: 1, Limit: 2}, "all")
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, newest.ID, page.Orders[0].ID)
	assert.Len(t, page.Orders[0].Items, 1)
	assert.Equal(t, pagination.Meta{Page: 1, Limit: 2, Total: 4, TotalPages: 2, HasNext: true, HasPrev: false}, page.Pagination)

	delivered, err := svc.List(context.Background(), user.ID, pagination.Params{}, "delivered")
	require.NoError(t, err)
	require.Len(t, delivered.Orders, 1)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Orders[0].Status)
	assert.Equal(t, DefaultPageSize, delivered.Pagination.Limit)

	_, err = svc.List(context.Background(), user.ID, pagination.Params{}, "lost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetIsOwnerScoped(t *testing.T) {
	conn, svc := newTestService(t)
	owner := dbtest.SeedUser(t, conn, "ada@example.com")
	stranger := dbtest.SeedUser(t, conn, "eve@example.com")
	cat := dbtest.SeedCategory(t, conn, "books")
	book := dbtest.SeedProduct(t, conn, cat, "novel", 1999)
	order := seedOrder(t, conn, owner, book, enums.OrderStatusPending, time.Now().UTC())

	dto, err := svc.Get(context.Background(), owner.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, dto.OrderNumber)
	assert.Equal(t, "1 Main St", dto.ShippingAddress.Address1)

	_, err = svc.Get(context.Background(), stranger.ID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	conn, svc := newTestService(t)
	user := dbtest.SeedUser(t, conn, "ada@example.com")
	cat := dbtest.SeedCategory(t, conn, "books")
	book := dbtest.SeedProduct(t, conn, cat, "novel", 1999)
	order := seedOrder(t, conn, user, book, enums.OrderStatusPending, time.Now().UTC())
	admin := outbox.ActorRef{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, admin, order.ID, "SHIPPED")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	for _, next := range []string{"processing", "SHIPPED", "Delivered"} {
		dto, err := svc.UpdateStatus(ctx, admin, order.ID, next)
		require.NoError(t, err, next)
		assert.Equal(t, strings.ToUpper(next), string(dto.Status))
	}

	_, err = svc.UpdateStatus(ctx, admin, order.ID, "CANCELLED")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateStatus(ctx, admin, order.ID, "bogus")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateStatus(ctx, admin, uuid.New(), "CANCELLED")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventOrderStatusChanged).Find(&events).Error)
	assert.Len(t, events, 3)
}

func TestUpdateStatusCancelsOpenOrder(t *testing.T) {
	conn, svc := newTestService(t)
	user := dbtest.SeedUser(t, conn, "ada@example.com")
	cat := dbtest.SeedCategory(t, conn, "books")
	book := dbtest.SeedProduct(t, conn, cat, "novel", 1999)
	order := seedOrder(t, conn, user, book, enums.OrderStatusProcessing, time.Now().UTC())

	dto, err := svc.UpdateStatus(context.Background(), outbox.ActorRef{UserID: uuid.New(), Role: enums.UserRoleAdmin}, order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, dto.Status)
}
