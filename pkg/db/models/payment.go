package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

// Payment records a single charge attempt against an order. GatewayOrderID is
// the external reference sent to the gateway. TransactionID, TransactionStatus,
// FraudStatus and RawResponse track the latest notification received for the
// attempt; TransactionID doubles as the idempotency key for webhooks.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayOrderID    string              `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	TransactionID     *string             `gorm:"column:transaction_id;uniqueIndex"`
	TransactionStatus string              `gorm:"column:transaction_status;not null;default:''"`
	FraudStatus       *string             `gorm:"column:fraud_status"`
	RawResponse       json.RawMessage     `gorm:"column:raw_response;type:jsonb"`
	Status            enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	SnapToken         string              `gorm:"column:snap_token;not null"`
	RedirectURL       string              `gorm:"column:redirect_url;not null"`
	PaymentType       *string             `gorm:"column:payment_type"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
