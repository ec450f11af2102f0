package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

// OrderStatusHistory records every applied order transition with the event
// that caused it.
type OrderStatusHistory struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus  `gorm:"column:from_status;type:order_status;not null"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:order_status;not null"`
	Event      enums.PaymentEvent `gorm:"column:event;type:payment_event;not null"`
	Note       string             `gorm:"column:note;not null;default:''"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}
