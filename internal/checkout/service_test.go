package checkout

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/internal/orders"
	"github.com/papelisco/storefront/internal/products"
	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/db/dbtest"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/metrics"
	"github.com/papelisco/storefront/pkg/outbox"
	"github.com/papelisco/storefront/pkg/pricing"
	"github.com/papelisco/storefront/pkg/types"
)

type fixture struct {
	conn  *gorm.DB
	svc   Service
	actor outbox.ActorRef
	cat   models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	policy, err := pricing.NewPolicy("0.10", 0, 0)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Tx:       db.Wrap(conn),
		Orders:   orders.NewRepository(conn),
		Products: products.NewRepository(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Policy:   policy,
		Metrics:  metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
		Now:      func() time.Time { return time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	user := dbtest.SeedUser(t, conn, "ada@example.com")
	return &fixture{
		conn:  conn,
		svc:   svc,
		actor: outbox.ActorRef{UserID: user.ID, Role: enums.UserRoleCustomer},
		cat:   dbtest.SeedCategory(t, conn, "electronics"),
	}
}

func validRequest(items ...ItemRequest) Request {
	return Request{
		Items: items,
		ShippingAddress: types.Address{
			FirstName:  "Ada",
			LastName:   "Lovelace",
			Address1:   "1 Main St",
			City:       "Austin",
			State:      "TX",
			PostalCode: "73301",
		},
		Card: CardRequest{Number: "4111-1111-1111-1111", Expiry: "1230", CVV: "123", Name: "Ada Lovelace"},
	}
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Count(&n).Error)
	return n
}

func TestExecutePlacesOrder(t *testing.T) {
	f := newFixture(t)
	headphones := dbtest.SeedProduct(t, f.conn, f.cat, "headphones", 4999)

	order, err := f.svc.Execute(context.Background(), f.actor, validRequest(
		ItemRequest{ProductID: headphones.ID.String(), Quantity: 2},
		ItemRequest{ProductID: headphones.ID.String(), Quantity: 1},
	))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^ORD-\d+-[0-9A-Z]{9}$`), order.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, pricing.Cents(14997), order.Subtotal)
	assert.Equal(t, pricing.Cents(1500), order.TaxAmount)
	assert.Equal(t, pricing.Cents(16497), order.TotalAmount)
	require.NotNil(t, order.CardLast4)
	assert.Equal(t, "1111", *order.CardLast4)
	require.NotNil(t, order.CardNetwork)
	assert.Equal(t, "visa", *order.CardNetwork)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, pricing.Cents(14997), order.Items[0].Total)
	assert.Equal(t, "US", order.ShippingAddress.Country)

	body, err := json.Marshal(order)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"totalAmount":"164.97"`)

	var stocked models.Product
	require.NoError(t, f.conn.First(&stocked, "id = ?", headphones.ID).Error)
	assert.Equal(t, 7, stocked.StockQuantity)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestExecuteRejectsInvalidCard(t *testing.T) {
	f := newFixture(t)
	p := dbtest.SeedProduct(t, f.conn, f.cat, "cable", 999)

	req := validRequest(ItemRequest{ProductID: p.ID.String(), Quantity: 1})
	req.Card = CardRequest{Number: "4111 1111 1111 1112", Expiry: "05/25", CVV: "12", Name: " "}

	_, err := f.svc.Execute(context.Background(), f.actor, req)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	details, ok := appErr.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, map[string]string{
		"card.number": "Invalid card number",
		"card.expiry": "Invalid or expired date",
		"card.cvv":    "Invalid CVV",
		"card.name":   "Cardholder name is required",
	}, details)
	assert.Zero(t, f.countRows(t, &models.Order{}))
}

func TestExecuteRejectsUnavailableProducts(t *testing.T) {
	f := newFixture(t)
	p := dbtest.SeedProduct(t, f.conn, f.cat, "cable", 999)
	draft := dbtest.SeedProduct(t, f.conn, f.cat, "prototype", 999)
	require.NoError(t, f.conn.Model(&models.Product{}).Where("id = ?", draft.ID).UpdateColumn("status", enums.ProductStatusDraft).Error)

	cases := map[string]Request{
		"unknown":  validRequest(ItemRequest{ProductID: uuid.NewString(), Quantity: 1}),
		"draft":    validRequest(ItemRequest{ProductID: draft.ID.String(), Quantity: 1}),
		"no stock": validRequest(ItemRequest{ProductID: p.ID.String(), Quantity: 11}),
	}
	for name, req := range cases {
		_, err := f.svc.Execute(context.Background(), f.actor, req)
		require.Error(t, err, name)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), name)
	}

	assert.Zero(t, f.countRows(t, &models.Order{}))
	assert.Zero(t, f.countRows(t, &models.OutboxEvent{}))

	var reloaded models.Product
	require.NoError(t, f.conn.First(&reloaded, "id = ?", p.ID).Error)
	assert.Equal(t, 10, reloaded.StockQuantity)
}

func TestExecuteValidatesItemsAndAddress(t *testing.T) {
	f := newFixture(t)
	p := dbtest.SeedProduct(t, f.conn, f.cat, "cable", 999)

	_, err := f.svc.Execute(context.Background(), f.actor, validRequest())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Execute(context.Background(), f.actor, validRequest(ItemRequest{ProductID: "nope", Quantity: 1}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req := validRequest(ItemRequest{ProductID: p.ID.String(), Quantity: 1})
	req.ShippingAddress.City = "  "
	_, err = f.svc.Execute(context.Background(), f.actor, req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Execute(context.Background(), outbox.ActorRef{}, validRequest(ItemRequest{ProductID: p.ID.String(), Quantity: 1}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.UnixMilli(1718445600123)
	a, err := NewOrderNumber(now)
	require.NoError(t, err)
	b, err := NewOrderNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-1718445600123-[0-9A-Z]{9}$`, a)
	assert.NotEqual(t, a, b)
}
