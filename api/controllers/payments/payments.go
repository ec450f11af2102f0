package payments

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mahendraputra/lokapasar-backend/api/responses"
	"github.com/mahendraputra/lokapasar-backend/api/validators"
	paymentsvc "github.com/mahendraputra/lokapasar-backend/internal/payments"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	pkgerrors "github.com/mahendraputra/lokapasar-backend/pkg/errors"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
)

type createChargeRequest struct {
	OrderID       string `json:"order_id" validate:"required,uuid"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
}

type chargeResponse struct {
	PaymentID      uuid.UUID       `json:"payment_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	SnapToken      string          `json:"snap_token"`
	RedirectURL    string          `json:"redirect_url"`
}

type refundRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	Reason  string `json:"reason" validate:"required,min=3,max=500"`
}

type resolveRefundRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

type refundResponse struct {
	RefundID   uuid.UUID       `json:"refund_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	PaymentID  uuid.UUID       `json:"payment_id"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// CreateCharge opens a gateway checkout session for a pending order.
func CreateCharge(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createChargeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		result, err := svc.CreateCharge(ctx, paymentsvc.CreateChargeInput{
			OrderID:       orderID,
			CustomerEmail: req.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, chargeResponse{
			PaymentID:      result.Payment.ID,
			OrderID:        result.Payment.OrderID,
			GatewayOrderID: result.Payment.GatewayOrderID,
			Amount:         result.Payment.Amount,
			Status:         result.Payment.Status.String(),
			SnapToken:      result.Token,
			RedirectURL:    result.RedirectURL,
		})
	}
}

// RequestRefund records a refund request for a paid order. An operator later
// approves or rejects it.
func RequestRefund(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := uuid.Parse(req.OrderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		refund, err := svc.RequestRefund(ctx, paymentsvc.RequestRefundInput{
			OrderID: orderID,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toRefundResponse(refund))
	}
}

// ResolveRefund applies an operator decision to a requested refund.
func ResolveRefund(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		refundID, err := uuid.Parse(chi.URLParam(r, "refundId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid refund id"))
			return
		}

		var req resolveRefundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		refund, err := svc.ResolveRefund(ctx, refundID, req.Action == "approve")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toRefundResponse(refund))
	}
}

func toRefundResponse(refund *models.Refund) refundResponse {
	return refundResponse{
		RefundID:   refund.ID,
		OrderID:    refund.OrderID,
		PaymentID:  refund.PaymentID,
		Status:     refund.Status.String(),
		Amount:     refund.Amount,
		Reason:     refund.Reason,
		ResolvedAt: refund.ResolvedAt,
	}
}
