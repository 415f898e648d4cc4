// Package scheduler drives the alert pipeline on a fixed interval.
package scheduler

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// Runner is the unit of work the scheduler invokes each tick.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler invokes a Runner once immediately and then once per
// interval until the context is cancelled. Failed cycles are logged
// and do not stop the loop.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   log.Logger
}

// New builds a Scheduler. A nil logger falls back to a no-op logger.
func New(runner Runner, interval time.Duration, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Scheduler{runner: runner, interval: interval, logger: logger}
}

// Start blocks until ctx is cancelled. It runs one cycle up front so a
// fresh deploy does not wait a full interval before the first poll.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info(ctx, "scheduler started", "interval", s.interval.String())

	s.runOnce(ctx)

	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "scheduler stopped")
			return
		case <-t.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.runner.Run(ctx); err != nil {
		s.logger.Error(ctx, err, "scheduled cycle failed")
	}
}
