package rabbit

import (
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

type consumeChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consume starts a manual-ack subscription on queue limited to prefetch unacked deliveries.
func Consume(ch consumeChannel, queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if queue == "" {
		return nil, errors.New("queue is required")
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return ch.Consume(queue, consumer, false, false, false, false, nil)
}
