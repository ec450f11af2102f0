package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	CreateStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListStatusHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error)

	FindActivePayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindPaymentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	UpdatePaymentsForOrder(ctx context.Context, orderID uuid.UUID, current enums.PaymentStatus, updates map[string]any) error

	FindPendingPastDeadline(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	FindUnshippedPaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	FindApprovedRefunds(ctx context.Context, limit int) ([]models.Refund, error)
	UpdateRefund(ctx context.Context, refundID uuid.UUID, updates map[string]any) error
	CreateRefund(ctx context.Context, refund *models.Refund) (*models.Refund, error)
	FindRefundByID(ctx context.Context, id uuid.UUID) (*models.Refund, error)

	CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var terminalStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusCompleted: true,
	enums.OrderStatusCancelled: true,
	enums.OrderStatusRefunded:  true,
}

// IsTerminal reports whether no further transitions can leave the status.
func IsTerminal(status enums.OrderStatus) bool {
	return terminalStatuses[status]
}
