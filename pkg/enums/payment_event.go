package enums

import "fmt"

// PaymentEvent is the internal event vocabulary the order state machine
// consumes. Gateway notification statuses and worker sweeps are both
// normalized into these before any transition is attempted.
type PaymentEvent string

const (
	// EventSettlement is emitted when the gateway confirms funds captured.
	EventSettlement PaymentEvent = "settlement"
	// EventPaymentFailed covers gateway expire, cancel and deny statuses.
	EventPaymentFailed PaymentEvent = "payment_failed"
	// EventRefund is emitted when the gateway reports a completed refund.
	EventRefund PaymentEvent = "refund"
	// EventExpiryTimeout is a synthetic event from the expiry sweep for
	// pending orders whose payment window has lapsed.
	EventExpiryTimeout PaymentEvent = "expiry_timeout"
	// EventSettle is a synthetic event from the settlement sweep moving
	// long-delivered orders to completed.
	EventSettle PaymentEvent = "settle"
	// EventRefundApproved is a synthetic event applied when an operator
	// approves a refund request.
	EventRefundApproved PaymentEvent = "refund_approved"
)

var validPaymentEvents = []PaymentEvent{
	EventSettlement,
	EventPaymentFailed,
	EventRefund,
	EventExpiryTimeout,
	EventSettle,
	EventRefundApproved,
}

// String implements fmt.Stringer.
func (e PaymentEvent) String() string {
	return string(e)
}

// IsValid reports whether the value is a known PaymentEvent.
func (e PaymentEvent) IsValid() bool {
	for _, candidate := range validPaymentEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParsePaymentEvent converts raw input into a PaymentEvent.
func ParsePaymentEvent(value string) (PaymentEvent, error) {
	for _, candidate := range validPaymentEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event %q", value)
}
