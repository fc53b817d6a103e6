// Package rabbit holds the RabbitMQ connection, exchange topology and publisher used to
// relay outbox events.
package rabbit

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/multierr"

	"github.com/papelisco/storefront/pkg/config"
	"github.com/papelisco/storefront/pkg/logger"
)

// Conn owns a broker connection and the single channel used for publishing.
type Conn struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker, opens a channel and declares the event topology.
func Connect(ctx context.Context, cfg config.RabbitMQConfig, logg *logger.Logger) (*Conn, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := DeclareTopology(ch, cfg.Exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}
	if cfg.OrderQueue != "" {
		spec := QueueSpec{Name: cfg.OrderQueue, BindKeys: []string{"order.*"}, DLQ: cfg.OrderQueue + ".dlq"}
		if err := DeclareQueue(ch, cfg.Exchange, spec); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", cfg.OrderQueue, err)
		}
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "exchange", cfg.Exchange), "rabbitmq connection established")
	}
	return &Conn{conn: conn, ch: ch}, nil
}

// Channel exposes the publishing channel.
func (c *Conn) Channel() *amqp.Channel {
	return c.ch
}

// Ping reports whether the connection and channel are still open.
func (c *Conn) Ping(context.Context) error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	if c.ch == nil || c.ch.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// Close shuts the channel then the connection.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	var err error
	if c.ch != nil {
		err = multierr.Append(err, c.ch.Close())
	}
	if c.conn != nil {
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}
