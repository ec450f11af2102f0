package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentNotification is an append-only audit record of every gateway
// notification received, duplicates included.
type PaymentNotification struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID         uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	TransactionID     string          `gorm:"column:transaction_id;not null"`
	TransactionStatus string          `gorm:"column:transaction_status;not null"`
	FraudStatus       *string         `gorm:"column:fraud_status"`
	RawBody           json.RawMessage `gorm:"column:raw_body;type:jsonb;not null"`
	ReceivedAt        time.Time       `gorm:"column:received_at;autoCreateTime"`
}
