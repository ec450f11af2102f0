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

type approvedRefundReader interface {
	FindApprovedRefunds(ctx context.Context, limit int) ([]models.Refund, error)
}

type refundResolver interface {
	UpdateRefund(ctx context.Context, refundID uuid.UUID, updates map[string]any) error
}

type refundRepoFactory func(tx *gorm.DB) refundResolver

func defaultRefundRepo(tx *gorm.DB) refundResolver {
	return orders.NewRepository(tx)
}

// RefundSyncJobParams configure the approved refund sweep.
type RefundSyncJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Refunds      approvedRefundReader
	StateMachine transitioner
	RepoFactory  refundRepoFactory
	Interval     time.Duration
}

// NewRefundSyncJob builds the sweep that applies operator-approved refunds
// to their orders.
func NewRefundSyncJob(params RefundSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refunds reader required")
	}
	if params.StateMachine == nil {
		return nil, fmt.Errorf("state machine required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultRefundRepo
	}
	return &refundSyncJob{
		logg:        params.Logger,
		db:          params.DB,
		refunds:     params.Refunds,
		sm:          params.StateMachine,
		repoFactory: repoFactory,
		interval:    params.Interval,
		now:         time.Now,
	}, nil
}

type refundSyncJob struct {
	logg        *logger.Logger
	db          txRunner
	refunds     approvedRefundReader
	sm          transitioner
	repoFactory refundRepoFactory
	interval    time.Duration
	now         func() time.Time
}

func (j *refundSyncJob) Name() string { return "refund-sync" }

func (j *refundSyncJob) Interval() time.Duration { return j.interval }

func (j *refundSyncJob) Run(ctx context.Context) error {
	pending, err := j.refunds.FindApprovedRefunds(ctx, sweepBatchSize)
	if err != nil {
		return fmt.Errorf("query approved refunds: %w", err)
	}
	var errs []error
	applied := 0
	for _, refund := range pending {
		ok, err := j.syncRefund(ctx, refund)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync refund %s: %w", refund.ID, err))
			continue
		}
		if ok {
			applied++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(pending),
		"applied":    applied,
	})
	j.logg.Info(logCtx, "refund sync sweep complete")
	return multierr.Combine(errs...)
}

// syncRefund applies the refund to the order and marks the refund resolved in
// the same transaction. The refund stays resolved even when the transition
// no-ops, so a refund on an already refunded order is not retried forever.
func (j *refundSyncJob) syncRefund(ctx context.Context, refund models.Refund) (bool, error) {
	var appliedResult bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		result, err := j.sm.Apply(ctx, tx, refund.OrderID, enums.EventRefundApproved, "refund approved (sync worker)")
		if err != nil {
			return err
		}
		appliedResult = result.Applied
		repo := j.repoFactory(tx)
		return repo.UpdateRefund(ctx, refund.ID, map[string]any{
			"resolved_at": j.now().UTC(),
		})
	})
	return appliedResult, err
}
