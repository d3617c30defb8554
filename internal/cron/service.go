package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/thedailydev/dailydev-backend/pkg/logger"
	"github.com/thedailydev/dailydev-backend/pkg/metrics"
)

const defaultInterval = 15 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service executes registered cron jobs on a fixed cadence. Only the
// instance holding the lock runs a cycle.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Cycle summarizes one pass over the registry.
type Cycle struct {
	Skipped bool
	Ran     int
	Failed  []string
}

// Run starts a cycle right away, then one per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		cycle, err := s.RunOnce(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "cron cycle failed", err)
		case !cycle.Skipped:
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"jobs_run":    cycle.Ran,
				"jobs_failed": cycle.Failed,
			}), "cron cycle finished")
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every registered job once if this instance wins the lock.
// A failing job is logged and counted and the remaining jobs still run.
func (s *Service) RunOnce(ctx context.Context) (Cycle, error) {
	won, err := s.lock.Acquire(ctx)
	if err != nil {
		return Cycle{}, fmt.Errorf("lock acquire: %w", err)
	}
	if !won {
		s.logg.Debug(ctx, "cron lock held elsewhere; skipping cycle")
		return Cycle{Skipped: true}, nil
	}
	defer func() {
		// release even if ctx was cancelled mid-cycle
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	var cycle Cycle
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		cycle.Ran++
		if err := s.runJob(ctx, job); err != nil {
			cycle.Failed = append(cycle.Failed, job.Name())
		}
	}
	return cycle, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)

	started := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(started)

	s.metrics.ObserveDuration(name, elapsed)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "cron job failed", err)
		return err
	}
	s.metrics.IncSuccess(name)
	s.logg.Info(jobCtx, "cron job completed")
	return nil
}
