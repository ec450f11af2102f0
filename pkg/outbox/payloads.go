package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatusChangedEvent announces an applied order transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID `json:"orderId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PaymentCreatedEvent announces a new checkout session opened at the gateway.
type PaymentCreatedEvent struct {
	OrderID        uuid.UUID       `json:"orderId"`
	PaymentID      uuid.UUID       `json:"paymentId"`
	GatewayOrderID string          `json:"gatewayOrderId"`
	Amount         decimal.Decimal `json:"amount"`
}

// ShippingReminderEvent nudges a seller about an order stuck in processing.
type ShippingReminderEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	PaidSince   time.Time `json:"paidSince"`
	AgeAtNotice string    `json:"ageAtNotice"`
}
