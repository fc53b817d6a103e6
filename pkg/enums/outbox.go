package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateUser  OutboxAggregateType = "user"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateUser}

func (a OutboxAggregateType) IsValid() bool { return known(a, aggregateTypes) }

// OutboxEventType doubles as the routing key on the events exchange.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventUserRegistered     OutboxEventType = "user.registered"
)

var eventTypes = []OutboxEventType{EventOrderCreated, EventOrderStatusChanged, EventUserRegistered}

func (e OutboxEventType) String() string { return string(e) }

func (e OutboxEventType) IsValid() bool { return known(e, eventTypes) }

// ParseOutboxEventType matches routing keys exactly.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, eventTypes, false)
}

// OutboxDLQReason explains why an event was moved to the dead letter table.
type OutboxDLQReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQReason = "non_retryable"
)
