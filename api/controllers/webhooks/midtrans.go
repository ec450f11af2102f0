package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mahendraputra/lokapasar-backend/api/responses"
	"github.com/mahendraputra/lokapasar-backend/api/validators"
	midtranswebhook "github.com/mahendraputra/lokapasar-backend/internal/webhooks/midtrans"
	pkgerrors "github.com/mahendraputra/lokapasar-backend/pkg/errors"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
)

type notificationHandler interface {
	HandleNotification(ctx context.Context, notif *midtranswebhook.Notification, rawBody []byte) (*midtranswebhook.Result, error)
}

// MidtransWebhook ingests Midtrans payment notifications. Duplicates and
// precondition no-ops are acknowledged 200 so the gateway stops retrying.
func MidtransWebhook(svc notificationHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		rawBody, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		var notif midtranswebhook.Notification
		if err := json.Unmarshal(rawBody, &notif); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification body"))
			return
		}
		if err := validators.ValidateStruct(&notif); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.HandleNotification(ctx, &notif, rawBody)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		message := "notification processed"
		if result.Duplicate {
			message = "duplicate notification acknowledged"
		}
		responses.WriteSuccessMessage(w, map[string]any{
			"order_id": result.OrderID,
			"applied":  result.Applied,
		}, message)
	}
}
