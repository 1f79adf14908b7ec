// Package scheduler runs the generation orchestrator on a fixed cadence.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"artloop/logging"
	"artloop/orchestrator"
)

// Runner starts one generation run. Satisfied by *orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, req orchestrator.GenerationRequest) (*orchestrator.GenerationResult, error)
}

// RequestFactory builds the request for each scheduled run, letting every
// run pick its own seed.
type RequestFactory func() orchestrator.GenerationRequest

// Stats summarizes one loop invocation. Failed runs count toward Runs.
type Stats struct {
	Runs      int
	Successes int
	Failures  int
}

// Scheduler triggers runs with a fixed start-to-start interval. A run longer
// than the interval starts the next run immediately after it finishes; there
// is no overlap and no catch-up burst.
type Scheduler struct {
	runner   Runner
	requests RequestFactory
	interval time.Duration
	batch    int
	logger   *logging.Logger
}

// New wires a scheduler. batch 0 loops until the context is cancelled.
func New(runner Runner, requests RequestFactory, interval time.Duration, batch int, logger *logging.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler: runner cannot be nil")
	}
	if requests == nil {
		return nil, fmt.Errorf("scheduler: request factory cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler: interval must be positive, got %s", interval)
	}
	if batch < 0 {
		return nil, fmt.Errorf("scheduler: batch size cannot be negative, got %d", batch)
	}
	return &Scheduler{
		runner:   runner,
		requests: requests,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}, nil
}

// Run executes the loop until the batch completes or ctx is cancelled. A
// single run's failure is counted and the loop proceeds; the returned error
// is non-nil only for cancellation.
func (s *Scheduler) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	for n := 1; s.batch == 0 || n <= s.batch; n++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		start := time.Now()
		if s.logger != nil {
			s.logger.Info("scheduled run starting",
				zap.Int("run", n),
				zap.Int("batch", s.batch))
		}

		_, err := s.runner.Run(ctx, s.requests())
		stats.Runs++
		if err != nil {
			stats.Failures++
			if s.logger != nil {
				s.logger.Warn("scheduled run failed, loop continues",
					zap.Int("run", n),
					zap.Error(err))
			}
		} else {
			stats.Successes++
		}

		if s.batch != 0 && n == s.batch {
			break
		}

		// Start-to-start spacing: subtract the run's duration from the
		// interval so slow runs do not stretch the cadence further.
		wait := s.interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(wait):
		}
	}

	if s.logger != nil {
		s.logger.Info("scheduler loop finished",
			zap.Int("runs", stats.Runs),
			zap.Int("successes", stats.Successes),
			zap.Int("failures", stats.Failures))
	}
	return stats, nil
}
