package rabbit

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is a broker-agnostic outgoing event.
type Message struct {
	RoutingKey string
	MessageID  string
	Body       []byte
	Headers    map[string]string
	Timestamp  time.Time
}

// Publisher sends persistent JSON messages to a single exchange.
type Publisher struct {
	ch       publishChannel
	exchange string
}

func NewPublisher(ch publishChannel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish delivers msg to the exchange with msg.RoutingKey.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	if p == nil || p.ch == nil {
		return errors.New("publisher not configured")
	}
	if msg.RoutingKey == "" {
		return errors.New("routing key is required")
	}
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return p.ch.PublishWithContext(ctx, p.exchange, msg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageID,
		Timestamp:    ts,
		Headers:      headers,
		Body:         msg.Body,
	})
}
