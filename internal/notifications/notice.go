package notifications

import (
	"context"
	"fmt"

	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/outbox/payloads"
)

// Notice is a customer-facing message about an order.
type Notice struct {
	Recipient   string
	Name        string
	Subject     string
	Body        string
	OrderNumber string
}

// Sender delivers a notice to the customer.
type Sender interface {
	Send(ctx context.Context, notice Notice) error
}

// LogSender writes notices to the structured log. It stands in until a mail provider is wired.
type LogSender struct {
	Logger *logger.Logger
}

func (s LogSender) Send(ctx context.Context, notice Notice) error {
	s.Logger.Info(s.Logger.WithFields(ctx, map[string]any{
		"recipient":    notice.Recipient,
		"subject":      notice.Subject,
		"order_number": notice.OrderNumber,
	}), "customer notice sent")
	return nil
}

func orderPlacedNotice(evt payloads.OrderCreatedEvent) Notice {
	return Notice{
		Subject:     fmt.Sprintf("Order %s confirmed", evt.OrderNumber),
		Body:        fmt.Sprintf("We received your order of %d item(s). Total charged: %s %s.", evt.ItemCount, evt.TotalAmount, evt.Currency),
		OrderNumber: evt.OrderNumber,
	}
}

func statusChangedNotice(evt payloads.OrderStatusChangedEvent) Notice {
	return Notice{
		Subject:     fmt.Sprintf("Order %s is now %s", evt.OrderNumber, evt.To),
		Body:        fmt.Sprintf("Your order moved from %s to %s.", evt.From, evt.To),
		OrderNumber: evt.OrderNumber,
	}
}
