package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/papelisco/storefront/internal/orders"
	"github.com/papelisco/storefront/internal/products"
	"github.com/papelisco/storefront/pkg/card"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	pkgerrors "github.com/papelisco/storefront/pkg/errors"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/metrics"
	"github.com/papelisco/storefront/pkg/outbox"
	"github.com/papelisco/storefront/pkg/outbox/payloads"
	"github.com/papelisco/storefront/pkg/pricing"
	"github.com/papelisco/storefront/pkg/types"
)

const paymentMethodCard = "card"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service places orders.
type Service interface {
	Execute(ctx context.Context, actor outbox.ActorRef, req Request) (*orders.OrderDTO, error)
}

// ServiceParams bundles checkout dependencies.
type ServiceParams struct {
	Tx       txRunner
	Orders   orders.Repository
	Products *products.Repository
	Outbox   outboxPublisher
	Policy   pricing.Policy
	Currency string
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	tx       txRunner
	orders   orders.Repository
	products *products.Repository
	outbox   outboxPublisher
	policy   pricing.Policy
	currency string
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if err := params.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("pricing policy: %w", err)
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "USD"
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:       params.Tx,
		orders:   params.Orders,
		products: params.Products,
		outbox:   params.Outbox,
		policy:   params.Policy,
		currency: currency,
		metrics:  params.Metrics,
		logg:     logg,
		now:      now,
	}, nil
}

func (s *service) Execute(ctx context.Context, actor outbox.ActorRef, req Request) (*orders.OrderDTO, error) {
	dto, err := s.execute(ctx, actor, req)
	switch {
	case err == nil:
		s.metrics.Placed(dto.TotalAmount)
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation), pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		s.metrics.Outcome(metrics.CheckoutRejected)
	default:
		s.metrics.Outcome(metrics.CheckoutFailed)
	}
	return dto, err
}

func (s *service) execute(ctx context.Context, actor outbox.ActorRef, req Request) (*orders.OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	now := s.now()

	cardInput := card.Input{
		Number: card.NormalizeNumber(req.Card.Number),
		Expiry: card.NormalizeExpiry(req.Card.Expiry),
		CVV:    card.NormalizeCVV(req.Card.CVV),
		Name:   strings.TrimSpace(req.Card.Name),
	}
	if problems := cardProblems(card.Validate(cardInput, now)); len(problems) > 0 {
		return nil, pkgerrors.Fields("invalid card details", problems)
	}

	shipping := req.ShippingAddress.Normalize()
	if problems := addressProblems("shippingAddress", shipping); len(problems) > 0 {
		return nil, pkgerrors.Fields("invalid shipping address", problems)
	}
	var billing *types.Address
	if req.BillingAddress != nil {
		normalized := req.BillingAddress.Normalize()
		if problems := addressProblems("billingAddress", normalized); len(problems) > 0 {
			return nil, pkgerrors.Fields("invalid billing address", problems)
		}
		billing = &normalized
	}

	requested, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	orderNumber, err := NewOrderNumber(now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}

	var result orders.OrderDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalog := s.products.WithTx(tx)

		ids := make([]uuid.UUID, 0, len(requested))
		for _, line := range requested {
			ids = append(ids, line.ProductID)
		}
		rows, err := catalog.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
		}
		priced, err := priceLines(requested, rows)
		if err != nil {
			return err
		}

		totals, err := pricing.ComputeTotals(lineItems(priced), s.policy)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute totals")
		}

		order := s.buildOrder(actor.UserID, orderNumber, cardInput, totals, shipping, billing, req.Notes, priced)
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		for _, line := range priced {
			ok, err := catalog.DecrementStock(ctx, line.Product.ID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "some items cannot be ordered").
					WithDetails(map[string]string{line.Product.ID.String(): "insufficient stock"})
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &actor,
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				ItemCount:   len(order.Items),
				TotalAmount: totals.Total,
				Currency:    order.Currency,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
		}

		result = orders.NewOrderDTO(order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     result.ID.String(),
		"order_number": result.OrderNumber,
		"total":        result.TotalAmount.String(),
	})
	s.logg.Info(logCtx, "order placed")
	return &result, nil
}

func (s *service) buildOrder(
	userID uuid.UUID,
	orderNumber string,
	cardInput card.Input,
	totals pricing.Totals,
	shipping types.Address,
	billing *types.Address,
	notes *string,
	lines []pricedLine,
) *models.Order {
	network := string(card.DetectNetwork(cardInput.Number))
	last4 := card.LastFour(cardInput.Number)

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID:      line.Product.ID,
			ProductName:    line.Product.Name,
			UnitPriceCents: line.Product.PriceCents,
			Quantity:       line.Quantity,
			TotalCents:     int64(line.lineItem().Total()),
		})
	}

	return &models.Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPaid,
		PaymentMethod:   paymentMethodCard,
		CardNetwork:     &network,
		CardLast4:       &last4,
		Currency:        s.currency,
		SubtotalCents:   int64(totals.Subtotal),
		TaxCents:        int64(totals.Tax),
		ShippingCents:   int64(totals.Shipping),
		DiscountCents:   int64(totals.Discount),
		TotalCents:      int64(totals.Total),
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Notes:           trimmedNotes(notes),
		Items:           items,
	}
}

func addressProblems(prefix string, a types.Address) map[string]string {
	problems := map[string]string{}
	required := map[string]string{
		"firstName":  a.FirstName,
		"lastName":   a.LastName,
		"address1":   a.Address1,
		"city":       a.City,
		"state":      a.State,
		"postalCode": a.PostalCode,
	}
	for field, value := range required {
		if value == "" {
			problems[prefix+"."+field] = "is required"
		}
	}
	if len(a.Country) != 2 {
		problems[prefix+".country"] = "must be a two letter code"
	}
	return problems
}

func trimmedNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	v := strings.TrimSpace(*notes)
	if v == "" {
		return nil
	}
	return &v
}
