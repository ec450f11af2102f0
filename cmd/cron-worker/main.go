package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mahendraputra/lokapasar-backend/internal/cron"
	"github.com/mahendraputra/lokapasar-backend/internal/ledger"
	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/config"
	"github.com/mahendraputra/lokapasar-backend/pkg/db"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	"github.com/mahendraputra/lokapasar-backend/pkg/metrics"
	"github.com/mahendraputra/lokapasar-backend/pkg/migrate"
	"github.com/mahendraputra/lokapasar-backend/pkg/outbox"
	"github.com/mahendraputra/lokapasar-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ordersRepo := orders.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	stateMachine, err := orders.NewStateMachine(ordersRepo, ledgerRepo, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create state machine", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, logg, dbClient, ordersRepo, outboxRepo, outboxSvc, stateMachine)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:      logg,
		Registry:    registry,
		LockFactory: cron.NewRedisLockFactory(redisClient, 0),
		Metrics:     metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	ordersRepo orders.Repository,
	outboxRepo *outbox.Repository,
	outboxSvc *outbox.Service,
	stateMachine *orders.StateMachine,
) (*cron.Registry, error) {
	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:       logg,
		DB:           dbClient,
		Orders:       ordersRepo,
		StateMachine: stateMachine,
		Interval:     cfg.Reconcile.ExpirySweepInterval,
	})
	if err != nil {
		return nil, err
	}

	settlementJob, err := cron.NewOrderSettlementJob(cron.OrderSettlementJobParams{
		Logger:       logg,
		DB:           dbClient,
		Orders:       ordersRepo,
		StateMachine: stateMachine,
		Interval:     cfg.Reconcile.SettlementSweepInterval,
	})
	if err != nil {
		return nil, err
	}

	refundJob, err := cron.NewRefundSyncJob(cron.RefundSyncJobParams{
		Logger:       logg,
		DB:           dbClient,
		Refunds:      ordersRepo,
		StateMachine: stateMachine,
		Interval:     cfg.Reconcile.RefundSyncInterval,
	})
	if err != nil {
		return nil, err
	}

	reminderJob, err := cron.NewShippingReminderJob(cron.ShippingReminderJobParams{
		Logger:     logg,
		DB:         dbClient,
		Orders:     ordersRepo,
		Outbox:     outboxSvc,
		OutboxRepo: outboxRepo,
		Age:        cfg.Reconcile.ShippingReminderAge,
		Interval:   cfg.Reconcile.ShippingReminderInterval,
	})
	if err != nil {
		return nil, err
	}

	cleanupJob, err := cron.NewAttemptCleanupJob(cron.AttemptCleanupJobParams{
		Logger:    logg,
		Attempts:  ordersRepo,
		Retention: cfg.Reconcile.AttemptRetention,
		Interval:  cfg.Reconcile.RetentionInterval,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(expiryJob, settlementJob, refundJob, reminderJob, cleanupJob), nil
}
