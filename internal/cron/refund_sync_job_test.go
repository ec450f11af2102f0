package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/internal/ledger"
	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

func seedRefund(t *testing.T, db *gorm.DB, orderID, paymentID uuid.UUID, status enums.RefundStatus) *models.Refund {
	t.Helper()

	refund := &models.Refund{
		ID:        uuid.New(),
		OrderID:   orderID,
		PaymentID: paymentID,
		Status:    status,
		Amount:    decimal.NewFromInt(90000),
		Reason:    "barang rusak",
	}
	require.NoError(t, db.Create(refund).Error)
	return refund
}

func newRefundSyncJob(t *testing.T, db *gorm.DB) Job {
	t.Helper()
	job, err := NewRefundSyncJob(RefundSyncJobParams{
		Logger:       testLogger(),
		DB:           dbRunner{db: db},
		Refunds:      orders.NewRepository(db),
		StateMachine: testTransitioner(t, db),
		Interval:     5 * time.Minute,
	})
	require.NoError(t, err)
	return job
}

func TestRefundSyncJobAppliesApprovedRefunds(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(-time.Hour))
	payment := seedSweepPayment(t, db, order.ID, enums.PaymentStatusPaid)
	refund := seedRefund(t, db, order.ID, payment.ID, enums.RefundStatusApproved)

	job := newRefundSyncJob(t, db)
	require.NoError(t, job.Run(context.Background()))

	var storedOrder models.Order
	require.NoError(t, db.First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusRefunded, storedOrder.Status)

	var storedPayment models.Payment
	require.NoError(t, db.First(&storedPayment, "id = ?", payment.ID).Error)
	assert.Equal(t, enums.PaymentStatusRefunded, storedPayment.Status)

	movements, err := ledger.NewRepository(db).ListByOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, enums.StockMovementRefund, movements[0].Type)

	var storedRefund models.Refund
	require.NoError(t, db.First(&storedRefund, "id = ?", refund.ID).Error)
	assert.NotNil(t, storedRefund.ResolvedAt)
}

func TestRefundSyncJobResolvesRefundWhenOrderAlreadyRefunded(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusRefunded, time.Now().Add(-time.Hour))
	payment := seedSweepPayment(t, db, order.ID, enums.PaymentStatusRefunded)
	refund := seedRefund(t, db, order.ID, payment.ID, enums.RefundStatusApproved)

	job := newRefundSyncJob(t, db)
	require.NoError(t, job.Run(context.Background()))

	// The transition no-ops but the refund must not be picked up again.
	var storedRefund models.Refund
	require.NoError(t, db.First(&storedRefund, "id = ?", refund.ID).Error)
	assert.NotNil(t, storedRefund.ResolvedAt)

	history, err := orders.NewRepository(db).ListStatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRefundSyncJobIgnoresRequestedAndRejectedRefunds(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(-time.Hour))
	payment := seedSweepPayment(t, db, order.ID, enums.PaymentStatusPaid)
	seedRefund(t, db, order.ID, payment.ID, enums.RefundStatusRequested)
	seedRefund(t, db, order.ID, payment.ID, enums.RefundStatusRejected)

	job := newRefundSyncJob(t, db)
	require.NoError(t, job.Run(context.Background()))

	var storedOrder models.Order
	require.NoError(t, db.First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusProcessing, storedOrder.Status)
}
