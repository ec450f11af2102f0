package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

// StockMovement is one row in the append-only stock ledger. Rows are never
// updated or deleted; available stock is derived by summing movements.
type StockMovement struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	Type      enums.StockMovementType `gorm:"column:type;type:stock_movement_type;not null"`
	Quantity  int                     `gorm:"column:quantity;not null"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}
