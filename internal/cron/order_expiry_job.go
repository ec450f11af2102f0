package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mahendraputra/lokapasar-backend/internal/orders"
	"github.com/mahendraputra/lokapasar-backend/pkg/db/models"
	"github.com/mahendraputra/lokapasar-backend/pkg/enums"
	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	"github.com/mahendraputra/lokapasar-backend/pkg/outbox"
)

const sweepBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// transitioner is the state machine entry point shared by all sweeps. Sweeps
// never mutate order or payment rows directly.
type transitioner interface {
	Apply(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, event enums.PaymentEvent, note string) (*orders.TransitionResult, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type outboxExistenceChecker interface {
	Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

type pendingOrderReader interface {
	FindPendingPastDeadline(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// OrderExpiryJobParams configure the pending order expiry sweep.
type OrderExpiryJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Orders       pendingOrderReader
	StateMachine transitioner
	Interval     time.Duration
}

// NewOrderExpiryJob builds the sweep that cancels pending orders whose
// payment deadline has passed.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.StateMachine == nil {
		return nil, fmt.Errorf("state machine required")
	}
	return &orderExpiryJob{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		sm:       params.StateMachine,
		interval: params.Interval,
		now:      time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg     *logger.Logger
	db       txRunner
	orders   pendingOrderReader
	sm       transitioner
	interval time.Duration
	now      func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Interval() time.Duration { return j.interval }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	candidates, err := j.orders.FindPendingPastDeadline(ctx, j.now().UTC(), sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query pending orders past deadline: %w", err)
	}
	var errs []error
	applied := 0
	for _, order := range candidates {
		result, err := j.expireOrder(ctx, order.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if result.Applied {
			applied++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"applied":    applied,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return multierr.Combine(errs...)
}

// expireOrder runs one order in its own transaction. A webhook expire that
// raced this sweep already flipped the order; the precondition no-op covers
// that case.
func (j *orderExpiryJob) expireOrder(ctx context.Context, orderID uuid.UUID) (*orders.TransitionResult, error) {
	var result *orders.TransitionResult
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := j.sm.Apply(ctx, tx, orderID, enums.EventExpiryTimeout, "expired (auto worker)")
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	return result, err
}
