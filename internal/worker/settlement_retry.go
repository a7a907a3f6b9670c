package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/heroiclabs/nakama-common/runtime"
)

// Retrier re-attempts failed settlements and reports how many were paid.
type Retrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// SettlementRetry periodically re-runs failed payouts.
type SettlementRetry struct {
	sched    gocron.Scheduler
	retrier  Retrier
	interval time.Duration
	logger   runtime.Logger
}

func NewSettlementRetry(retrier Retrier, interval time.Duration, logger runtime.Logger, opts ...gocron.SchedulerOption) (*SettlementRetry, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("retry interval must be positive, got %s", interval)
	}
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &SettlementRetry{
		sched:    sched,
		retrier:  retrier,
		interval: interval,
		logger:   logger,
	}, nil
}

// Start schedules the job. Runs never overlap; a slow run pushes the next one back.
func (w *SettlementRetry) Start(ctx context.Context) error {
	_, err := w.sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RunOnce(ctx) }),
		gocron.WithName("settlement-retry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule settlement retry: %w", err)
	}
	w.sched.Start()
	w.logger.Info("SettlementRetry: started, every %s", w.interval)
	return nil
}

// RunOnce performs a single retry pass.
func (w *SettlementRetry) RunOnce(ctx context.Context) {
	paid, err := w.retrier.RetryFailed(ctx)
	if err != nil {
		w.logger.Error("SettlementRetry: pass failed: %v", err)
		return
	}
	if paid > 0 {
		w.logger.Info("SettlementRetry: %d settlements paid on retry", paid)
	}
}

func (w *SettlementRetry) Stop() error {
	if err := w.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return nil
}
