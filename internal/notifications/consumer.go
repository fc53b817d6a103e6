// Package notifications turns order events from the broker into customer notices.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/papelisco/storefront/pkg/db"
	"github.com/papelisco/storefront/pkg/db/models"
	"github.com/papelisco/storefront/pkg/enums"
	"github.com/papelisco/storefront/pkg/logger"
	"github.com/papelisco/storefront/pkg/outbox"
	"github.com/papelisco/storefront/pkg/outbox/payloads"
	pkgredis "github.com/papelisco/storefront/pkg/redis"
)

const (
	consumerScope = "order-notifications"
	processedTTL  = 7 * 24 * time.Hour
)

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type ConsumerParams struct {
	Users  userLookup
	Sender Sender
	Dedupe pkgredis.IdempotencyStore
	Logger *logger.Logger
}

// Consumer handles order.* deliveries. Each event id is processed at most once.
type Consumer struct {
	users  userLookup
	sender Sender
	dedupe pkgredis.IdempotencyStore
	logg   *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	switch {
	case params.Users == nil:
		return nil, errors.New("user lookup required")
	case params.Sender == nil:
		return nil, errors.New("sender required")
	case params.Dedupe == nil:
		return nil, errors.New("dedupe store required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	return &Consumer{users: params.Users, sender: params.Sender, dedupe: params.Dedupe, logg: params.Logger}, nil
}

// Run handles deliveries until ctx is canceled or the channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.settle(ctx, d, c.handle(ctx, d))
		}
	}
}

type outcome int

const (
	ack outcome = iota
	// retry puts the delivery back on the queue.
	retry
	// reject routes the delivery to the dead letter queue.
	reject
)

func (c *Consumer) settle(ctx context.Context, d amqp.Delivery, o outcome) {
	var err error
	switch o {
	case ack:
		err = d.Ack(false)
	case retry:
		err = d.Nack(false, true)
	case reject:
		err = d.Nack(false, false)
	}
	if err != nil {
		c.logg.Error(ctx, "failed to settle delivery", err)
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) outcome {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"routing_key": d.RoutingKey,
		"message_id":  d.MessageId,
	})

	eventType, err := enums.ParseOutboxEventType(d.RoutingKey)
	if err != nil || (eventType != enums.EventOrderCreated && eventType != enums.EventOrderStatusChanged) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return ack
	}

	envelope, err := outbox.DecodeEnvelope(d.Body)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return reject
	}
	notice, userID, err := buildNotice(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		return reject
	}

	key := c.dedupe.IdempotencyKey(consumerScope, envelope.EventID)
	first, err := c.dedupe.SetNX(ctx, key, "1", processedTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedupe check failed", err)
		return retry
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return ack
	}

	err = c.deliver(logCtx, userID, notice)
	if db.IsNotFound(err) {
		c.logg.Warn(logCtx, "order customer no longer exists; dropping notice")
		return ack
	}
	if err != nil {
		c.logg.Error(logCtx, "notice delivery failed", err)
		if delErr := c.dedupe.Del(ctx, key); delErr != nil {
			c.logg.Error(logCtx, "failed to clear dedupe key", delErr)
		}
		return retry
	}
	return ack
}

func (c *Consumer) deliver(ctx context.Context, userID uuid.UUID, notice Notice) error {
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}
	notice.Recipient = user.Email
	notice.Name = user.FirstName
	return c.sender.Send(ctx, notice)
}

func buildNotice(eventType enums.OutboxEventType, data json.RawMessage) (Notice, uuid.UUID, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var evt payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return Notice{}, uuid.Nil, err
		}
		return orderPlacedNotice(evt), evt.UserID, nil
	case enums.EventOrderStatusChanged:
		var evt payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return Notice{}, uuid.Nil, err
		}
		return statusChangedNotice(evt), evt.UserID, nil
	}
	return Notice{}, uuid.Nil, fmt.Errorf("unsupported event %s", eventType)
}
