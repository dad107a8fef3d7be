package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Evaluator is the engine-side hook the checker drives. Implementations
// must be idempotent: the checker delivers ticks at least once and may
// re-deliver after delays or restarts.
type Evaluator interface {
	EvaluateDueCheckpoints(ctx context.Context, now time.Time) error
}

// Checker runs periodic checkpoint evaluation in the background.
type Checker struct {
	evaluator Evaluator
	interval  time.Duration
}

// NewChecker creates a background checkpoint checker.
func NewChecker(evaluator Evaluator, interval time.Duration) *Checker {
	return &Checker{evaluator: evaluator, interval: interval}
}

// Run starts the periodic evaluation loop. It blocks until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := c.interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	log := zap.L().With(zap.String("component", "schedule.checker"))
	log.Info("starting checkpoint checker", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("checkpoint checker stopped")
			return
		case now := <-ticker.C:
			if err := c.evaluator.EvaluateDueCheckpoints(ctx, now); err != nil {
				log.Error("checkpoint evaluation failed", zap.Error(err))
			}
		}
	}
}
