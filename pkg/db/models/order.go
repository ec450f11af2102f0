package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

// Order is the aggregate root for the payment lifecycle. Status transitions
// always go through the state machine while the row is locked; PaymentStatus
// moves together with Status in the same transition. SettledAt marks the one
// delivered-to-completed settlement and gates the sweep against re-runs.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Currency        string              `gorm:"column:currency;not null;default:'IDR'"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	PaymentDeadline time.Time           `gorm:"column:payment_deadline;not null"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	ShippedAt       *time.Time          `gorm:"column:shipped_at"`
	SettledAt       *time.Time          `gorm:"column:settled_at"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
