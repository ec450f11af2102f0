package enums

import "fmt"

// StockMovementType labels an append-only stock ledger entry.
type StockMovementType string

const (
	// StockMovementSold decrements available stock when an order is paid.
	StockMovementSold StockMovementType = "sold"
	// StockMovementRelease returns reserved stock when an order dies unpaid.
	StockMovementRelease StockMovementType = "release"
	// StockMovementRefund returns stock for a refunded order.
	StockMovementRefund StockMovementType = "refund"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementSold,
	StockMovementRelease,
	StockMovementRefund,
}

// String implements fmt.Stringer.
func (s StockMovementType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockMovementType.
func (s StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts raw input into a StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}
