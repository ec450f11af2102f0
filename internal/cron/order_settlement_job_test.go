package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahendraputra/lokapasar-backend/internal/ledger"
	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

func TestOrderSettlementJobCompletesDeliveredOrders(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusDelivered, time.Now().Add(-48*time.Hour))
	seedSweepPayment(t, db, order.ID, enums.PaymentStatusPaid)
	deliveredAt := time.Now().Add(-24 * time.Hour)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("delivered_at", deliveredAt).Error)

	job, err := NewOrderSettlementJob(OrderSettlementJobParams{
		Logger:       testLogger(),
		DB:           dbRunner{db: db},
		Orders:       orders.NewRepository(db),
		StateMachine: testTransitioner(t, db),
		Interval:     10 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
	assert.NotNil(t, stored.SettledAt)

	// Completion moves no stock.
	movements, err := ledger.NewRepository(db).ListByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)

	var outboxCount int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.OutboxOrderCompleted, order.ID).
		Count(&outboxCount).Error)
	assert.Equal(t, int64(1), outboxCount)
}

func TestOrderSettlementJobSkipsUnpaidDeliveredOrders(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusDelivered, time.Now().Add(-48*time.Hour))
	seedSweepPayment(t, db, order.ID, enums.PaymentStatusPending)
	// Delivered by an operator override while the payment is still pending.
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{
			"delivered_at":   time.Now().Add(-24 * time.Hour),
			"payment_status": enums.PaymentStatusPending,
		}).Error)

	job, err := NewOrderSettlementJob(OrderSettlementJobParams{
		Logger:       testLogger(),
		DB:           dbRunner{db: db},
		Orders:       orders.NewRepository(db),
		StateMachine: testTransitioner(t, db),
		Interval:     10 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
	assert.Nil(t, stored.SettledAt)

	history, err := orders.NewRepository(db).ListStatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOrderSettlementJobIsRerunSafe(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusDelivered, time.Now().Add(-48*time.Hour))
	seedSweepPayment(t, db, order.ID, enums.PaymentStatusPaid)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("delivered_at", time.Now().Add(-24*time.Hour)).Error)

	job, err := NewOrderSettlementJob(OrderSettlementJobParams{
		Logger:       testLogger(),
		DB:           dbRunner{db: db},
		Orders:       orders.NewRepository(db),
		StateMachine: testTransitioner(t, db),
		Interval:     10 * time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	history, err := orders.NewRepository(db).ListStatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
