package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

// Service defines operations that append movements to the stock ledger.
type Service interface {
	BookMovements(ctx context.Context, input BookMovementsInput) ([]models.StockMovement, error)
	HasMovements(ctx context.Context, orderID uuid.UUID, movementType enums.StockMovementType) (bool, error)
}

type service struct {
	repo Repository
}

// MovementLine is one product quantity inside a movement batch.
type MovementLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// BookMovementsInput captures one atomic batch of movements for an order.
type BookMovementsInput struct {
	OrderID uuid.UUID
	Type    enums.StockMovementType
	Lines   []MovementLine
}

// NewService wires a stock ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// BookMovements appends one movement row per line. The caller supplies the
// transaction-bound repository so the batch commits with the order update.
func (s *service) BookMovements(ctx context.Context, input BookMovementsInput) ([]models.StockMovement, error) {
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid stock movement type %q", input.Type)
	}
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("movement batch requires at least one line")
	}

	movements := make([]models.StockMovement, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, fmt.Errorf("movement line missing product id")
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("movement quantity must be positive, got %d", line.Quantity)
		}
		movements = append(movements, models.StockMovement{
			ID:        uuid.New(),
			ProductID: line.ProductID,
			OrderID:   input.OrderID,
			Type:      input.Type,
			Quantity:  line.Quantity,
		})
	}

	if err := s.repo.Create(ctx, movements); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *service) HasMovements(ctx context.Context, orderID uuid.UUID, movementType enums.StockMovementType) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	if !movementType.IsValid() {
		return false, fmt.Errorf("invalid stock movement type %q", movementType)
	}
	count, err := s.repo.CountByOrderAndType(ctx, orderID, movementType)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
