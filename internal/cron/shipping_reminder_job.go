package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	"github.com/mahendraputra/lokapasar-backend/pkg/outbox"
)

type unshippedOrderReader interface {
	FindUnshippedPaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// ShippingReminderJobParams configure the unshipped order nudge job.
type ShippingReminderJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Orders     unshippedOrderReader
	Outbox     outboxEmitter
	OutboxRepo outboxExistenceChecker
	Age        time.Duration
	Interval   time.Duration
}

// NewShippingReminderJob builds the job that nudges sellers about paid orders
// still waiting on shipment.
func NewShippingReminderJob(params ShippingReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	age := params.Age
	if age <= 0 {
		age = 24 * time.Hour
	}
	return &shippingReminderJob{
		logg:       params.Logger,
		db:         params.DB,
		orders:     params.Orders,
		outbox:     params.Outbox,
		outboxRepo: params.OutboxRepo,
		age:        age,
		interval:   params.Interval,
		now:        time.Now,
	}, nil
}

type shippingReminderJob struct {
	logg       *logger.Logger
	db         txRunner
	orders     unshippedOrderReader
	outbox     outboxEmitter
	outboxRepo outboxExistenceChecker
	age        time.Duration
	interval   time.Duration
	now        func() time.Time
}

func (j *shippingReminderJob) Name() string { return "shipping-reminder" }

func (j *shippingReminderJob) Interval() time.Duration { return j.interval }

func (j *shippingReminderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.age)
	stale, err := j.orders.FindUnshippedPaidBefore(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query unshipped paid orders: %w", err)
	}
	var errs []error
	emitted := 0
	for _, order := range stale {
		sent, err := j.emitReminder(ctx, order)
		if err != nil {
			errs = append(errs, fmt.Errorf("remind order %s: %w", order.ID, err))
			continue
		}
		if sent {
			emitted++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"emitted":    emitted,
	})
	j.logg.Info(logCtx, "shipping reminder sweep complete")
	return multierr.Combine(errs...)
}

// emitReminder queues at most one reminder per order for its lifetime.
func (j *shippingReminderJob) emitReminder(ctx context.Context, order models.Order) (bool, error) {
	exists, err := j.outboxRepo.Exists(ctx, enums.OutboxShippingOverdue, enums.AggregateOrder, order.ID)
	if err != nil {
		return false, fmt.Errorf("check reminder existence: %w", err)
	}
	if exists {
		return false, nil
	}
	now := j.now().UTC()
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.OutboxShippingOverdue,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: outbox.ShippingReminderEvent{
				OrderID:     order.ID,
				PaidSince:   order.UpdatedAt,
				AgeAtNotice: now.Sub(order.UpdatedAt).Round(time.Minute).String(),
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
