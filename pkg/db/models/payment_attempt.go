package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAttempt is a short-lived trace row written when a checkout session is
// opened. Operators use it to correlate gateway sessions during an incident;
// a cron sweep prunes rows past the retention window. Unlike
// PaymentNotification this table is disposable.
type PaymentAttempt struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentID      uuid.UUID `gorm:"column:payment_id;type:uuid;not null"`
	GatewayOrderID string    `gorm:"column:gateway_order_id;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
