package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/db"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/mahendraputra/lokapasar-backend/pkg/errors"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	pkgmidtrans "github.com/mahendraputra/lokapasar-backend/pkg/midtrans"
	"github.com/mahendraputra/lokapasar-backend/pkg/outbox"
)

// ChargeGateway is the slice of the gateway wrapper CreateCharge needs.
type ChargeGateway interface {
	CreateCharge(ctx context.Context, req pkgmidtrans.ChargeRequest) (*pkgmidtrans.ChargeSession, error)
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes payment lifecycle operations.
type Service interface {
	CreateCharge(ctx context.Context, input CreateChargeInput) (*ChargeResult, error)
	RequestRefund(ctx context.Context, input RequestRefundInput) (*models.Refund, error)
	ResolveRefund(ctx context.Context, refundID uuid.UUID, approve bool) (*models.Refund, error)
}

// CreateChargeInput identifies the order to open a checkout session for.
type CreateChargeInput struct {
	OrderID       uuid.UUID
	CustomerEmail string
}

// ChargeResult carries the stored payment and the gateway session handle.
type ChargeResult struct {
	Payment     *models.Payment
	Token       string
	RedirectURL string
}

// RequestRefundInput captures a buyer-initiated refund request.
type RequestRefundInput struct {
	OrderID uuid.UUID
	Reason  string
}

type service struct {
	tx      TxRunner
	repo    orders.Repository
	gateway ChargeGateway
	outbox  *outbox.Service
	logg    *logger.Logger
}

// NewService wires the payments service.
func NewService(tx TxRunner, repo orders.Repository, gateway ChargeGateway, outboxSvc *outbox.Service, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("charge gateway required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{tx: tx, repo: repo, gateway: gateway, outbox: outboxSvc, logg: logg}, nil
}

// CreateCharge opens a gateway checkout session for a pending order. The
// order row stays locked for the duration so two concurrent calls cannot
// both pass the active-payment check.
func (s *service) CreateCharge(ctx context.Context, input CreateChargeInput) (*ChargeResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var result *ChargeResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}

		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
				WithDetails(map[string]any{"status": order.Status.String()})
		}
		if time.Now().After(order.PaymentDeadline) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment window has closed")
		}

		if _, err := repo.FindActivePayment(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "a payment for this order is already in progress")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking active payment")
		}

		gatewayOrderID := fmt.Sprintf("ORDER-%s-%d", order.ID, time.Now().UnixMilli())

		items := make([]pkgmidtrans.ChargeItem, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, pkgmidtrans.ChargeItem{
				ID:       item.ProductID.String(),
				Name:     item.Name,
				Price:    item.UnitPrice.Round(0).IntPart(),
				Quantity: int32(item.Quantity),
			})
		}

		// The gateway call has a bounded client timeout, which caps how long
		// this transaction can hold the order lock.
		session, err := s.gateway.CreateCharge(ctx, pkgmidtrans.ChargeRequest{
			GatewayOrderID: gatewayOrderID,
			GrossAmount:    order.TotalAmount.Round(0).IntPart(),
			CustomerEmail:  input.CustomerEmail,
			Items:          items,
		})
		if err != nil {
			return err
		}

		payment := &models.Payment{
			ID:             uuid.New(),
			OrderID:        order.ID,
			GatewayOrderID: gatewayOrderID,
			Status:         enums.PaymentStatusPending,
			Amount:         order.TotalAmount,
			SnapToken:      session.Token,
			RedirectURL:    session.RedirectURL,
		}
		if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
			// The partial index enforces one pending payment per order even for
			// writers that skip the active-payment check above.
			if db.IsUniqueViolation(err, "idx_payments_one_pending_per_order") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "a payment for this order is already in progress")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing payment")
		}

		// Disposable trace row for operators; the attempt cleanup sweep prunes it.
		attempt := &models.PaymentAttempt{
			ID:             uuid.New(),
			OrderID:        order.ID,
			PaymentID:      payment.ID,
			GatewayOrderID: gatewayOrderID,
		}
		if err := repo.CreatePaymentAttempt(ctx, attempt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording payment attempt")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxPaymentCreated,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: outbox.PaymentCreatedEvent{
				OrderID:        order.ID,
				PaymentID:      payment.ID,
				GatewayOrderID: gatewayOrderID,
				Amount:         order.TotalAmount,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queueing outbox event")
		}

		result = &ChargeResult{Payment: payment, Token: session.Token, RedirectURL: session.RedirectURL}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   input.OrderID.String(),
			"payment_id": result.Payment.ID.String(),
		})
		s.logg.Info(logCtx, "checkout session created")
	}
	return result, nil
}

// RequestRefund records a refund request for a paid order. The stock and
// order status only change once an operator approves and the sync worker
// applies the transition.
func (s *service) RequestRefund(ctx context.Context, input RequestRefundInput) (*models.Refund, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason is required")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}

		switch order.Status {
		case enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not refundable").
				WithDetails(map[string]any{"status": order.Status.String()})
		}

		var payment models.Payment
		if err := tx.WithContext(ctx).
			Where("order_id = ? AND status = ?", order.ID, enums.PaymentStatusPaid).
			Order("created_at DESC").
			First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no settled payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
		}

		refund = &models.Refund{
			ID:        uuid.New(),
			OrderID:   order.ID,
			PaymentID: payment.ID,
			Status:    enums.RefundStatusRequested,
			Amount:    payment.Amount,
			Reason:    input.Reason,
		}
		if _, err := repo.CreateRefund(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing refund request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// ResolveRefund approves or rejects a pending refund request. Approval marks
// the request for the refund sync worker; rejection closes it immediately.
func (s *service) ResolveRefund(ctx context.Context, refundID uuid.UUID, approve bool) (*models.Refund, error) {
	if refundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id is required")
	}

	var resolved *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		refund, err := repo.FindRefundByID(ctx, refundID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading refund")
		}
		if refund.Status != enums.RefundStatusRequested {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund request already resolved").
				WithDetails(map[string]any{"status": refund.Status.String()})
		}

		updates := map[string]any{"status": enums.RefundStatusApproved}
		if !approve {
			updates["status"] = enums.RefundStatusRejected
			updates["resolved_at"] = time.Now()
		}
		if err := repo.UpdateRefund(ctx, refundID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating refund")
		}

		resolved, err = repo.FindRefundByID(ctx, refundID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading refund")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}
