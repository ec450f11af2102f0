package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS stock_movements (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestBookMovementsAppendsOneRowPerLine(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	orderID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	movements, err := svc.BookMovements(context.Background(), BookMovementsInput{
		OrderID: orderID,
		Type:    enums.StockMovementSold,
		Lines: []MovementLine{
			{ProductID: productA, Quantity: 2},
			{ProductID: productB, Quantity: 5},
		},
	})
	require.NoError(t, err)
	assert.Len(t, movements, 2)

	stored, err := NewRepository(db).ListByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, m := range stored {
		assert.Equal(t, enums.StockMovementSold, m.Type)
		assert.Equal(t, orderID, m.OrderID)
	}
}

func TestBookMovementsRejectsBadInput(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	ctx := context.Background()
	line := MovementLine{ProductID: uuid.New(), Quantity: 1}

	cases := []struct {
		name  string
		input BookMovementsInput
	}{
		{"missing order id", BookMovementsInput{Type: enums.StockMovementSold, Lines: []MovementLine{line}}},
		{"invalid type", BookMovementsInput{OrderID: uuid.New(), Type: "adjustment", Lines: []MovementLine{line}}},
		{"empty batch", BookMovementsInput{OrderID: uuid.New(), Type: enums.StockMovementSold}},
		{"zero quantity", BookMovementsInput{OrderID: uuid.New(), Type: enums.StockMovementSold, Lines: []MovementLine{{ProductID: uuid.New()}}}},
		{"negative quantity", BookMovementsInput{OrderID: uuid.New(), Type: enums.StockMovementSold, Lines: []MovementLine{{ProductID: uuid.New(), Quantity: -3}}}},
		{"missing product", BookMovementsInput{OrderID: uuid.New(), Type: enums.StockMovementSold, Lines: []MovementLine{{Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.BookMovements(ctx, tc.input)
			require.Error(t, err)
		})
	}
}

func TestHasMovements(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	ctx := context.Background()
	orderID := uuid.New()

	has, err := svc.HasMovements(ctx, orderID, enums.StockMovementSold)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = svc.BookMovements(ctx, BookMovementsInput{
		OrderID: orderID,
		Type:    enums.StockMovementSold,
		Lines:   []MovementLine{{ProductID: uuid.New(), Quantity: 1}},
	})
	require.NoError(t, err)

	has, err = svc.HasMovements(ctx, orderID, enums.StockMovementSold)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasMovements(ctx, orderID, enums.StockMovementRelease)
	require.NoError(t, err)
	assert.False(t, has)
}
