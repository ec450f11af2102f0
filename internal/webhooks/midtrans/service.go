package midtranswebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/mahendraputra/lokapasar-backend/pkg/errors"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	"github.com/mahendraputra/lokapasar-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type signatureVerifier interface {
	VerifySignature(orderID, statusCode, grossAmount, signature string) bool
}

// Notification is the payload Midtrans posts to the notification URL.
type Notification struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	TransactionID     string `json:"transaction_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	PaymentType       string `json:"payment_type"`
	OrderID           string `json:"order_id" validate:"required"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status"`
}

// Result reports what processing a notification did.
type Result struct {
	Duplicate bool
	Applied   bool
	OrderID   uuid.UUID
	From      enums.OrderStatus
	To        enums.OrderStatus
}

type ServiceParams struct {
	OrdersRepo        orders.Repository
	StateMachine      *orders.StateMachine
	Verifier          signatureVerifier
	TransactionRunner txRunner
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

type Service struct {
	repo     orders.Repository
	sm       *orders.StateMachine
	verifier signatureVerifier
	txRunner txRunner
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.StateMachine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "state machine required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		repo:     params.OrdersRepo,
		sm:       params.StateMachine,
		verifier: params.Verifier,
		txRunner: params.TransactionRunner,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// eventForStatus maps gateway transaction statuses onto lifecycle events.
// Statuses with no mapping (pending, authorize) are recorded but change nothing.
func eventForStatus(status, fraudStatus string) (enums.PaymentEvent, bool) {
	switch strings.ToLower(status) {
	case "settlement":
		return enums.EventSettlement, true
	case "capture":
		if strings.EqualFold(fraudStatus, "accept") || fraudStatus == "" {
			return enums.EventSettlement, true
		}
		return "", false
	case "expire", "cancel", "deny":
		return enums.EventPaymentFailed, true
	case "refund", "partial_refund":
		return enums.EventRefund, true
	default:
		return "", false
	}
}

// HandleNotification verifies, records and applies one gateway notification.
// The notification row is appended even for duplicates; only the first
// notification per transaction id drives a state change.
func (s *Service) HandleNotification(ctx context.Context, notif *Notification, rawBody []byte) (*Result, error) {
	if notif == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification required")
	}
	if notif.OrderID == "" || notif.TransactionID == "" || notif.TransactionStatus == "" {
		s.metrics.IncRejected()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification missing required fields")
	}

	if !s.verifier.VerifySignature(notif.OrderID, notif.StatusCode, notif.GrossAmount, notif.SignatureKey) {
		s.metrics.IncRejected()
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid notification signature")
	}

	if len(rawBody) == 0 {
		rawBody, _ = json.Marshal(notif)
	}

	result := &Result{}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment, err := repo.FindPaymentByGatewayOrderID(ctx, notif.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no payment matches the notification order id")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
		}
		result.OrderID = payment.OrderID

		// Lock the order before the duplicate check so a concurrent delivery
		// of the same transaction id serializes behind this one.
		if _, err := repo.FindForUpdate(ctx, payment.OrderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking order")
		}

		record := &models.PaymentNotification{
			ID:                uuid.New(),
			PaymentID:         payment.ID,
			TransactionID:     notif.TransactionID,
			TransactionStatus: notif.TransactionStatus,
			RawBody:           json.RawMessage(rawBody),
		}
		if notif.FraudStatus != "" {
			record.FraudStatus = &notif.FraudStatus
		}
		if err := tx.WithContext(ctx).Create(record).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording notification")
		}

		if payment.TransactionID != nil && *payment.TransactionID == notif.TransactionID {
			result.Duplicate = true
			return nil
		}

		// Every non-duplicate notification refreshes the gateway fields, so a
		// deny followed by a retried charge cannot leave a stale key behind.
		updates := map[string]any{
			"transaction_id":     notif.TransactionID,
			"transaction_status": notif.TransactionStatus,
			"raw_response":       json.RawMessage(rawBody),
		}
		if notif.PaymentType != "" {
			updates["payment_type"] = notif.PaymentType
		}
		if notif.FraudStatus != "" {
			updates["fraud_status"] = notif.FraudStatus
		}
		if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "binding transaction state")
		}

		event, ok := eventForStatus(notif.TransactionStatus, notif.FraudStatus)
		if !ok {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_id":           payment.OrderID.String(),
					"transaction_status": notif.TransactionStatus,
				})
				s.logg.Info(logCtx, "notification recorded without state change")
			}
			return nil
		}

		if payment.Status.IsTerminal() {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_id":       payment.OrderID.String(),
					"payment_status": payment.Status.String(),
				})
				s.logg.Info(logCtx, "payment already terminal, notification recorded only")
			}
			return nil
		}

		transition, err := s.sm.Apply(ctx, tx, payment.OrderID, event, "Midtrans: "+notif.TransactionStatus)
		if err != nil {
			return err
		}
		result.Applied = transition.Applied
		result.From = transition.From
		result.To = transition.To
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		s.metrics.IncDuplicate()
	} else {
		s.metrics.IncReceived(strings.ToLower(notif.TransactionStatus))
	}
	return result, nil
}
