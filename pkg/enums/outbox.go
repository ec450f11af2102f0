package enums

import "fmt"

// OutboxEventType names a domain event stored in the transactional outbox.
type OutboxEventType string

const (
	OutboxOrderPaid       OutboxEventType = "order.paid"
	OutboxOrderCancelled  OutboxEventType = "order.cancelled"
	OutboxOrderExpired    OutboxEventType = "order.expired"
	OutboxOrderCompleted  OutboxEventType = "order.completed"
	OutboxOrderRefunded   OutboxEventType = "order.refunded"
	OutboxPaymentCreated  OutboxEventType = "payment.created"
	OutboxShippingOverdue OutboxEventType = "shipping.reminder"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxOrderPaid,
	OutboxOrderCancelled,
	OutboxOrderExpired,
	OutboxOrderCompleted,
	OutboxOrderRefunded,
	OutboxPaymentCreated,
	OutboxShippingOverdue,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	return o == AggregateOrder || o == AggregatePayment
}
