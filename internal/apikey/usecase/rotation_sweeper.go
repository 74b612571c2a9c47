package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// RotationSweeper periodically completes rotations whose grace period has
// elapsed so old keys don't linger in the rotating state when nobody
// presents them.
type RotationSweeper struct {
	keyUseCase KeyUseCase
	interval   time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewRotationSweeper creates a RotationSweeper.
func NewRotationSweeper(
	keyUseCase KeyUseCase,
	interval time.Duration,
	clock clockwork.Clock,
	logger *slog.Logger,
) *RotationSweeper {
	return &RotationSweeper{
		keyUseCase: keyUseCase,
		interval:   interval,
		clock:      clock,
		logger:     logger,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (r *RotationSweeper) Start(ctx context.Context) error {
	r.logger.Info("starting rotation sweeper", slog.Duration("interval", r.interval))

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping rotation sweeper")
			return ctx.Err()
		case <-ticker.Chan():
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many rotations were completed.
func (r *RotationSweeper) Sweep(ctx context.Context) int {
	completed, err := r.keyUseCase.SweepRotations(ctx)
	if err != nil {
		r.logger.Error("failed to sweep rotations", slog.Any("error", err))
	}
	if completed > 0 {
		r.logger.Info("completed elapsed rotations", slog.Int("count", completed))
	}
	return completed
}
