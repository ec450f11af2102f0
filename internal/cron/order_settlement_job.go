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
)

type deliveredOrderReader interface {
	FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// OrderSettlementJobParams configure the delivered order settlement sweep.
type OrderSettlementJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Orders       deliveredOrderReader
	StateMachine transitioner
	Interval     time.Duration
}

// NewOrderSettlementJob builds the sweep that completes delivered paid orders.
func NewOrderSettlementJob(params OrderSettlementJobParams) (Job, error) {
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
	return &orderSettlementJob{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		sm:       params.StateMachine,
		interval: params.Interval,
		now:      time.Now,
	}, nil
}

type orderSettlementJob struct {
	logg     *logger.Logger
	db       txRunner
	orders   deliveredOrderReader
	sm       transitioner
	interval time.Duration
	now      func() time.Time
}

func (j *orderSettlementJob) Name() string { return "order-settlement" }

func (j *orderSettlementJob) Interval() time.Duration { return j.interval }

func (j *orderSettlementJob) Run(ctx context.Context) error {
	candidates, err := j.orders.FindDeliveredBefore(ctx, j.now().UTC(), sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query delivered orders: %w", err)
	}
	var errs []error
	applied := 0
	for _, order := range candidates {
		result, err := j.settleOrder(ctx, order.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("settle order %s: %w", order.ID, err))
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
	j.logg.Info(logCtx, "order settlement sweep complete")
	return multierr.Combine(errs...)
}

func (j *orderSettlementJob) settleOrder(ctx context.Context, orderID uuid.UUID) (*orders.TransitionResult, error) {
	var result *orders.TransitionResult
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := j.sm.Apply(ctx, tx, orderID, enums.EventSettle, "completed (auto worker)")
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	return result, err
}
