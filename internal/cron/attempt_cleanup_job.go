package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
)

type attemptsCleaner interface {
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AttemptCleanupJobParams configure the checkout attempt housekeeping job.
type AttemptCleanupJobParams struct {
	Logger    *logger.Logger
	Attempts  attemptsCleaner
	Retention time.Duration
	Interval  time.Duration
}

// NewAttemptCleanupJob builds the job that prunes old checkout attempt
// traces. Only the payment_attempts table is touched; notification audit
// rows, orders and payments are never deleted.
func NewAttemptCleanupJob(params AttemptCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Attempts == nil {
		return nil, fmt.Errorf("attempts repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &attemptCleanupJob{
		logg:      params.Logger,
		repo:      params.Attempts,
		retention: retention,
		interval:  params.Interval,
		now:       time.Now,
	}, nil
}

type attemptCleanupJob struct {
	logg      *logger.Logger
	repo      attemptsCleaner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func (j *attemptCleanupJob) Name() string { return "attempt-cleanup" }

func (j *attemptCleanupJob) Interval() time.Duration { return j.interval }

func (j *attemptCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteAttemptsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("attempt cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "attempt cleanup complete")
	return nil
}
