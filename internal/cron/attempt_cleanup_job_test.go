package cron

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

func seedAttempt(t *testing.T, db *gorm.DB, orderID, paymentID uuid.UUID, age time.Duration) *models.PaymentAttempt {
	t.Helper()

	row := &models.PaymentAttempt{
		ID:             uuid.New(),
		OrderID:        orderID,
		PaymentID:      paymentID,
		GatewayOrderID: "ORDER-" + uuid.NewString(),
	}
	require.NoError(t, db.Create(row).Error)
	require.NoError(t, db.Model(&models.PaymentAttempt{}).Where("id = ?", row.ID).
		Update("created_at", time.Now().UTC().Add(-age)).Error)
	return row
}

func seedNotification(t *testing.T, db *gorm.DB, paymentID uuid.UUID, age time.Duration) *models.PaymentNotification {
	t.Helper()

	row := &models.PaymentNotification{
		ID:                uuid.New(),
		PaymentID:         paymentID,
		TransactionID:     uuid.NewString(),
		TransactionStatus: "settlement",
		RawBody:           json.RawMessage(`{"transaction_status":"settlement"}`),
	}
	require.NoError(t, db.Create(row).Error)
	require.NoError(t, db.Model(&models.PaymentNotification{}).Where("id = ?", row.ID).
		Update("received_at", time.Now().UTC().Add(-age)).Error)
	return row
}

func newAttemptCleanupJob(t *testing.T, db *gorm.DB) Job {
	t.Helper()
	job, err := NewAttemptCleanupJob(AttemptCleanupJobParams{
		Logger:    testLogger(),
		Attempts:  orders.NewRepository(db),
		Retention: 24 * time.Hour,
		Interval:  24 * time.Hour,
	})
	require.NoError(t, err)
	return job
}

func TestAttemptCleanupJobPrunesOldAttempts(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(-72*time.Hour))
	payment := seedSweepPayment(t, db, order.ID, enums.PaymentStatusPaid)

	old := seedAttempt(t, db, order.ID, payment.ID, 48*time.Hour)
	recent := seedAttempt(t, db, order.ID, payment.ID, time.Hour)

	job := newAttemptCleanupJob(t, db)
	require.NoError(t, job.Run(context.Background()))

	var remaining []models.PaymentAttempt
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, recent.ID, remaining[0].ID)
	assert.NotEqual(t, old.ID, remaining[0].ID)
}

func TestAttemptCleanupJobNeverTouchesNotifications(t *testing.T) {
	db := setupCronTestDB(t)
	order := seedSweepOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(-72*time.Hour))
	payment := seedSweepPayment(t, db, order.ID, enums.PaymentStatusPaid)

	seedAttempt(t, db, order.ID, payment.ID, 48*time.Hour)
	// Audit rows far past the retention window stay put regardless.
	seedNotification(t, db, payment.ID, 30*24*time.Hour)

	job := newAttemptCleanupJob(t, db)
	require.NoError(t, job.Run(context.Background()))

	var attempts int64
	require.NoError(t, db.Model(&models.PaymentAttempt{}).Count(&attempts).Error)
	assert.Zero(t, attempts)

	var notifications int64
	require.NoError(t, db.Model(&models.PaymentNotification{}).Count(&notifications).Error)
	assert.Equal(t, int64(1), notifications)
}
