package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mahendraputra/lokapasar-backend/api/controllers"
	paymentcontrollers "github.com/mahendraputra/lokapasar-backend/api/controllers/payments"
	webhookcontrollers "github.com/mahendraputra/lokapasar-backend/api/controllers/webhooks"
	"github.com/mahendraputra/lokapasar-backend/api/middleware"
	paymentsvc "github.com/mahendraputra/lokapasar-backend/internal/payments"
	midtranswebhook "github.com/mahendraputra/lokapasar-backend/internal/webhooks/midtrans"
	"github.com/mahendraputra/lokapasar-backend/pkg/config"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carry every dependency the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              pinger
	Redis           pinger
	PaymentsService paymentsvc.Service
	WebhookService  *midtranswebhook.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessProbes(params)))
	})

	// The notification URL registered with Midtrans. Unversioned; changing it
	// requires a dashboard update on their side.
	r.Post("/payments/webhook", webhookcontrollers.MidtransWebhook(params.WebhookService, logg))

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Post("/create", paymentcontrollers.CreateCharge(params.PaymentsService, logg))
		r.Post("/refunds", paymentcontrollers.RequestRefund(params.PaymentsService, logg))
		r.Post("/refunds/{refundId}/resolve", paymentcontrollers.ResolveRefund(params.PaymentsService, logg))
	})

	return r
}

func readinessProbes(params RouterParams) map[string]controllers.Pinger {
	probes := map[string]controllers.Pinger{}
	if params.DB != nil {
		probes["database"] = params.DB
	}
	if params.Redis != nil {
		probes["redis"] = params.Redis
	}
	return probes
}
