package payments

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/mahendraputra/lokapasar-backend/pkg/errors"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	pkgmidtrans "github.com/mahendraputra/lokapasar-backend/pkg/midtrans"
	"github.com/mahendraputra/lokapasar-backend/pkg/outbox"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:payments_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  total_amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'IDR',
  shipping_address TEXT NOT NULL,
  payment_deadline DATETIME NOT NULL,
  delivered_at DATETIME,
  shipped_at DATETIME,
  settled_at DATETIME,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  gateway_order_id TEXT NOT NULL UNIQUE,
  transaction_id TEXT,
  transaction_status TEXT NOT NULL DEFAULT '',
  fraud_status TEXT,
  raw_response TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  amount TEXT NOT NULL,
  snap_token TEXT NOT NULL,
  redirect_url TEXT NOT NULL,
  payment_type TEXT,
  paid_at DATETIME,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
		`CREATE TABLE IF NOT EXISTS payment_attempts (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  payment_id TEXT NOT NULL,
  gateway_order_id TEXT NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
		`CREATE TABLE IF NOT EXISTS refunds (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  payment_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'requested',
  amount TEXT NOT NULL,
  reason TEXT NOT NULL,
  resolved_at DATETIME,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type txRunner struct {
	db *gorm.DB
}

func (r txRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx.WithContext(ctx))
	})
}

type fakeGateway struct {
	calls []pkgmidtrans.ChargeRequest
	err   error
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req pkgmidtrans.ChargeRequest) (*pkgmidtrans.ChargeSession, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &pkgmidtrans.ChargeSession{
		Token:       "tok-" + req.GatewayOrderID,
		RedirectURL: "https://snap.test/" + req.GatewayOrderID,
	}, nil
}

func newTestService(t *testing.T, db *gorm.DB, gateway *fakeGateway) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(
		txRunner{db: db},
		orders.NewRepository(db),
		gateway,
		outbox.NewService(outbox.NewRepository(db), nil),
		logg,
	)
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, deadline time.Time) *models.Order {
	t.Helper()

	paymentStatus := enums.PaymentStatusPending
	switch status {
	case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
		paymentStatus = enums.PaymentStatusPaid
	case enums.OrderStatusCancelled:
		paymentStatus = enums.PaymentStatusExpired
	}

	order := &models.Order{
		ID:              uuid.New(),
		BuyerID:         uuid.New(),
		Status:          status,
		PaymentStatus:   paymentStatus,
		TotalAmount:     decimal.NewFromInt(250000),
		Currency:        "IDR",
		ShippingAddress: "Jl. Sudirman 1, Jakarta",
		PaymentDeadline: deadline,
	}
	require.NoError(t, db.Create(order).Error)

	item := &models.OrderItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: uuid.New(),
		Name:      "Batik Tulis",
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(125000),
		Subtotal:  decimal.NewFromInt(250000),
	}
	require.NoError(t, db.Create(item).Error)
	return order
}

func seedPaidPayment(t *testing.T, db *gorm.DB, orderID uuid.UUID) *models.Payment {
	t.Helper()
	now := time.Now()
	payment := &models.Payment{
		ID:             uuid.New(),
		OrderID:        orderID,
		GatewayOrderID: fmt.Sprintf("ORDER-%s-%d", orderID, now.UnixNano()),
		Status:         enums.PaymentStatusPaid,
		Amount:         decimal.NewFromInt(250000),
		SnapToken:      "tok",
		RedirectURL:    "url",
		PaidAt:         &now,
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestCreateChargeOpensSessionAndStoresPayment(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gateway := &fakeGateway{}
	svc := newTestService(t, db, gateway)

	order := seedOrder(t, db, enums.OrderStatusPending, time.Now().Add(time.Hour))

	result, err := svc.CreateCharge(context.Background(), CreateChargeInput{
		OrderID:       order.ID,
		CustomerEmail: "pembeli@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RedirectURL)

	require.Len(t, gateway.calls, 1)
	assert.Contains(t, gateway.calls[0].GatewayOrderID, "ORDER-"+order.ID.String())
	assert.Equal(t, int64(250000), gateway.calls[0].GrossAmount)
	require.Len(t, gateway.calls[0].Items, 1)
	assert.Equal(t, "pembeli@example.com", gateway.calls[0].CustomerEmail)

	var stored models.Payment
	require.NoError(t, db.First(&stored, "order_id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPending, stored.Status)
	assert.Equal(t, result.Token, stored.SnapToken)

	var outboxRows []models.OutboxEvent
	require.NoError(t, db.Find(&outboxRows).Error)
	require.Len(t, outboxRows, 1)
	assert.Equal(t, enums.OutboxPaymentCreated, outboxRows[0].EventType)

	var attempts []models.PaymentAttempt
	require.NoError(t, db.Find(&attempts).Error)
	require.Len(t, attempts, 1)
	assert.Equal(t, stored.ID, attempts[0].PaymentID)
	assert.Equal(t, stored.GatewayOrderID, attempts[0].GatewayOrderID)
}

func TestCreateChargeRejectsSecondActivePayment(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gateway := &fakeGateway{}
	svc := newTestService(t, db, gateway)

	order := seedOrder(t, db, enums.OrderStatusPending, time.Now().Add(time.Hour))

	_, err := svc.CreateCharge(context.Background(), CreateChargeInput{OrderID: order.ID})
	require.NoError(t, err)

	_, err = svc.CreateCharge(context.Background(), CreateChargeInput{OrderID: order.ID})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateChargeRollsBackOnGatewayFailure(t *testing.T) {
	db := setupPaymentsTestDB(t)
	gateway := &fakeGateway{err: pkgerrors.New(pkgerrors.CodeDependency, "payment gateway unavailable")}
	svc := newTestService(t, db, gateway)

	order := seedOrder(t, db, enums.OrderStatusPending, time.Now().Add(time.Hour))

	_, err := svc.CreateCharge(context.Background(), CreateChargeInput{OrderID: order.ID})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeDependency, appErr.Code())

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)

	var attempts int64
	require.NoError(t, db.Model(&models.PaymentAttempt{}).Count(&attempts).Error)
	assert.Zero(t, attempts)
}

func TestCreateChargeChecksOrderState(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newTestService(t, db, &fakeGateway{})

	cases := []struct {
		name     string
		status   enums.OrderStatus
		deadline time.Time
	}{
		{"already processing", enums.OrderStatusProcessing, time.Now().Add(time.Hour)},
		{"cancelled", enums.OrderStatusCancelled, time.Now().Add(time.Hour)},
		{"deadline passed", enums.OrderStatusPending, time.Now().Add(-time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := seedOrder(t, db, tc.status, tc.deadline)
			_, err := svc.CreateCharge(context.Background(), CreateChargeInput{OrderID: order.ID})
			require.Error(t, err)
			appErr := pkgerrors.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
		})
	}
}

func TestCreateChargeUnknownOrder(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newTestService(t, db, &fakeGateway{})

	_, err := svc.CreateCharge(context.Background(), CreateChargeInput{OrderID: uuid.New()})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestRequestRefund(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newTestService(t, db, &fakeGateway{})
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(time.Hour))
	payment := seedPaidPayment(t, db, order.ID)

	refund, err := svc.RequestRefund(ctx, RequestRefundInput{OrderID: order.ID, Reason: "barang tidak sesuai"})
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusRequested, refund.Status)
	assert.Equal(t, payment.ID, refund.PaymentID)
	assert.True(t, refund.Amount.Equal(payment.Amount))

	pending := seedOrder(t, db, enums.OrderStatusPending, time.Now().Add(time.Hour))
	_, err = svc.RequestRefund(ctx, RequestRefundInput{OrderID: pending.ID, Reason: "salah pesan"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestResolveRefund(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newTestService(t, db, &fakeGateway{})
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusProcessing, time.Now().Add(time.Hour))
	seedPaidPayment(t, db, order.ID)

	refund, err := svc.RequestRefund(ctx, RequestRefundInput{OrderID: order.ID, Reason: "rusak"})
	require.NoError(t, err)

	approved, err := svc.ResolveRefund(ctx, refund.ID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusApproved, approved.Status)
	assert.Nil(t, approved.ResolvedAt)

	_, err = svc.ResolveRefund(ctx, refund.ID, false)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestResolveRefundReject(t *testing.T) {
	db := setupPaymentsTestDB(t)
	svc := newTestService(t, db, &fakeGateway{})
	ctx := context.Background()

	order := seedOrder(t, db, enums.OrderStatusDelivered, time.Now().Add(time.Hour))
	seedPaidPayment(t, db, order.ID)

	refund, err := svc.RequestRefund(ctx, RequestRefundInput{OrderID: order.ID, Reason: "berubah pikiran"})
	require.NoError(t, err)

	rejected, err := svc.ResolveRefund(ctx, refund.ID, false)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundStatusRejected, rejected.Status)
	assert.NotNil(t, rejected.ResolvedAt)
}
