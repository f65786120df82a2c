package scheduler

import (
	"context"
	"time"

	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// DowngradeSweepProcessor defines the interface for the periodic entitlement sweep
type DowngradeSweepProcessor interface {
	// SweepExpiredEntitlements downgrades users whose grant window has lapsed
	// and who no longer hold an active device.
	SweepExpiredEntitlements(ctx context.Context) error
}

// DowngradeSweepScheduler runs the periodic downgrade sweep. The sweep is a
// safety net behind the per-release reconciler, so a missed run only delays
// the downgrade until the next tick.
type DowngradeSweepScheduler struct {
	processor DowngradeSweepProcessor
	logger    logger.Interface
	stopChan  chan struct{}
	interval  time.Duration
}

// NewDowngradeSweepScheduler creates a new downgrade sweep scheduler
func NewDowngradeSweepScheduler(
	processor DowngradeSweepProcessor,
	logger logger.Interface,
	interval time.Duration,
) *DowngradeSweepScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &DowngradeSweepScheduler{
		processor: processor,
		logger:    logger,
		stopChan:  make(chan struct{}),
		interval:  interval,
	}
}

// Start starts the scheduler
func (s *DowngradeSweepScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting downgrade sweep scheduler",
		"interval", s.interval,
	)

	go s.run(ctx)
}

// Stop stops the scheduler
func (s *DowngradeSweepScheduler) Stop() {
	close(s.stopChan)
}

// run runs the sweep loop
func (s *DowngradeSweepScheduler) run(ctx context.Context) {
	// Run immediately on start
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("downgrade sweep scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			s.logger.Infow("downgrade sweep scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one sweep pass
func (s *DowngradeSweepScheduler) sweep(ctx context.Context) {
	s.logger.Debugw("starting downgrade sweep")

	if err := s.processor.SweepExpiredEntitlements(ctx); err != nil {
		s.logger.Errorw("failed to run downgrade sweep", "error", err)
		return
	}

	s.logger.Debugw("downgrade sweep completed")
}
