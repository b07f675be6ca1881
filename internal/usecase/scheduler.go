package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MediaTrends/internal/config"
	"MediaTrends/internal/ports"
	"MediaTrends/internal/worker"
)

// Jobs binds the pipeline stages to their cron cadences. The stages are
// staggered so a fetch tick, an expansion tick, and a match tick never
// fire in the same minute.
type Jobs struct {
	scheduler ports.Scheduler
	pool      *worker.Pool
	ingestor  *Ingestor
	expansion *AliasExpansion
	notifier  *Notifier
	cleanup   *Cleanup
	cfg       config.SchedulerConfig
	logger    *slog.Logger
}

// NewJobs wires the stages to the scheduler driver.
func NewJobs(
	scheduler ports.Scheduler,
	pool *worker.Pool,
	ingestor *Ingestor,
	expansion *AliasExpansion,
	notifier *Notifier,
	cleanup *Cleanup,
	cfg config.SchedulerConfig,
	logger *slog.Logger,
) *Jobs {
	return &Jobs{
		scheduler: scheduler,
		pool:      pool,
		ingestor:  ingestor,
		expansion: expansion,
		notifier:  notifier,
		cleanup:   cleanup,
		cfg:       cfg,
		logger:    logger,
	}
}

// Register schedules all recurring jobs and starts the scheduler. The
// worker pool must already be started.
func (j *Jobs) Register(ctx context.Context) error {
	if err := j.scheduler.Schedule(j.cfg.FetchCron, func(now time.Time) {
		if err := j.ingestor.DispatchDue(ctx, now); err != nil {
			j.logger.Error("fetch dispatch failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule fetch: %w", err)
	}

	if err := j.scheduler.Schedule(j.cfg.ExpandCron, func(time.Time) {
		j.pool.Submit(func(taskCtx context.Context) {
			if err := j.expansion.Run(taskCtx); err != nil {
				j.logger.Error("alias expansion failed", "error", err)
			}
		})
	}); err != nil {
		return fmt.Errorf("schedule alias expansion: %w", err)
	}

	if err := j.scheduler.Schedule(j.cfg.MatchCron, func(now time.Time) {
		j.pool.Submit(func(taskCtx context.Context) {
			if err := j.notifier.Run(taskCtx, now); err != nil {
				j.logger.Error("match pass failed", "error", err)
			}
		})
	}); err != nil {
		return fmt.Errorf("schedule matching: %w", err)
	}

	if err := j.scheduler.Schedule(j.cfg.CleanupCron, func(now time.Time) {
		j.pool.Submit(func(taskCtx context.Context) {
			if err := j.cleanup.Run(taskCtx, now); err != nil {
				j.logger.Error("retention cleanup failed", "error", err)
			}
		})
	}); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}

	j.scheduler.Start()
	j.logger.Info("scheduler started",
		"fetch", j.cfg.FetchCron, "expand", j.cfg.ExpandCron,
		"match", j.cfg.MatchCron, "cleanup", j.cfg.CleanupCron)
	return nil
}

// Stop halts the scheduler and drains the pool.
func (j *Jobs) Stop(ctx context.Context) error {
	err := j.scheduler.Stop(ctx)
	j.pool.Stop()
	return err
}
