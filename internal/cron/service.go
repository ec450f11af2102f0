package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mahendraputra/lokapasar-backend/pkg/logger"
	"github.com/mahendraputra/lokapasar-backend/pkg/metrics"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger      *logger.Logger
	Registry    *Registry
	LockFactory LockFactory
	Metrics     *metrics.CronJobMetrics
}

// Service runs each registered job on its own cadence. Every job gets a
// dedicated ticker goroutine and a per-job lock, so a slow sweep never delays
// the others.
type Service struct {
	logg        *logger.Logger
	registry    *Registry
	lockFactory LockFactory
	metrics     *metrics.CronJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	lockFactory := params.LockFactory
	if lockFactory == nil {
		lockFactory = func(string) (Lock, error) { return noopLock{}, nil }
	}
	return &Service{
		logg:        params.Logger,
		registry:    registry,
		lockFactory: lockFactory,
		metrics:     params.Metrics,
	}, nil
}

// Run starts one loop per registered job and blocks until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	jobs := s.registry.Jobs()
	if len(jobs) == 0 {
		s.logg.Warn(ctx, "no cron jobs registered")
		<-ctx.Done()
		return ctx.Err()
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		lock, err := s.lockFactory(job.Name())
		if err != nil {
			return fmt.Errorf("build lock for job %s: %w", job.Name(), err)
		}
		wg.Add(1)
		go func(job Job, lock Lock) {
			defer wg.Done()
			s.runLoop(ctx, job, lock)
		}(job, lock)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) runLoop(ctx context.Context, job Job, lock Lock) {
	interval := job.Interval()
	if interval <= 0 {
		interval = time.Minute
	}
	s.runCycle(ctx, job, lock)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logCtx := s.logg.WithField(ctx, "job", job.Name())
			s.logg.Info(logCtx, "job loop stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx, job, lock)
		}
	}
}

func (s *Service) runCycle(ctx context.Context, job Job, lock Lock) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "another instance owns this job; skipping cycle")
		return
	}
	defer func() {
		if relErr := lock.Release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release job lock", relErr)
		}
	}()
	s.runJob(jobCtx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.recordSuccess(job.Name())
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
