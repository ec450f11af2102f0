package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

// Refund tracks an operator-mediated refund request for a paid order.
type Refund struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentID  uuid.UUID          `gorm:"column:payment_id;type:uuid;not null"`
	Status     enums.RefundStatus `gorm:"column:status;type:refund_status;not null;default:'requested'"`
	Amount     decimal.Decimal    `gorm:"column:amount;type:numeric(14,2);not null"`
	Reason     string             `gorm:"column:reason;not null"`
	ResolvedAt *time.Time         `gorm:"column:resolved_at"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
