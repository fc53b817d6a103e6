package rabbit

import amqp "github.com/rabbitmq/amqp091-go"

// DeadLetterSuffix names the dead letter exchange derived from the events exchange.
const DeadLetterSuffix = ".dlx"

// channel is the subset of *amqp.Channel needed to declare topology.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// QueueSpec describes a durable queue bound to the events exchange.
type QueueSpec struct {
	Name     string
	BindKeys []string
	// DLQ, when set, receives rejected messages through the dead letter exchange.
	DLQ string
}

// DeclareTopology declares the durable topic exchange for events and its dead letter exchange.
func DeclareTopology(ch channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.ExchangeDeclare(exchange+DeadLetterSuffix, amqp.ExchangeTopic, true, false, false, false, nil)
}

// DeclareQueue declares q, binds it to exchange and wires its dead letter queue.
func DeclareQueue(ch channel, exchange string, q QueueSpec) error {
	args := amqp.Table{}
	if q.DLQ != "" {
		args["x-dead-letter-exchange"] = exchange + DeadLetterSuffix
		args["x-dead-letter-routing-key"] = q.DLQ
	}
	declared, err := ch.QueueDeclare(q.Name, true, false, false, false, args)
	if err != nil {
		return err
	}
	for _, key := range q.BindKeys {
		if err := ch.QueueBind(declared.Name, key, exchange, false, nil); err != nil {
			return err
		}
	}
	if q.DLQ == "" {
		return nil
	}
	dlq, err := ch.QueueDeclare(q.DLQ, true, false, false, false, nil)
	if err != nil {
		return err
	}
	return ch.QueueBind(dlq.Name, q.DLQ, exchange+DeadLetterSuffix, false, nil)
}
