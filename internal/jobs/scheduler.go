package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	autoCloseSpec    = "0 15 * * * *"
	categoryWarmSpec = "0 */10 * * * *"
	jobTimeout       = 2 * time.Minute
)

// AutoCloser closes complaints left resolved for too long.
type AutoCloser interface {
	AutoCloseResolved(ctx context.Context, olderThan time.Duration) (int, error)
}

// CategoryWarmer refreshes the category cache.
type CategoryWarmer interface {
	Warm(ctx context.Context) error
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron       *cron.Cron
	closer     AutoCloser
	warmer     CategoryWarmer
	closeAfter time.Duration
	log        *zap.Logger
}

// NewScheduler builds the scheduler. A zero closeAfter disables auto-close.
func NewScheduler(closer AutoCloser, warmer CategoryWarmer, closeAfter time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{
		cron:       c,
		closer:     closer,
		warmer:     warmer,
		closeAfter: closeAfter,
		log:        log,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.closer != nil && s.closeAfter > 0 {
		if _, err := s.cron.AddFunc(autoCloseSpec, s.RunAutoClose); err != nil { // hourly
			return err
		}
	}
	if s.warmer != nil {
		if _, err := s.cron.AddFunc(categoryWarmSpec, s.RunCategoryWarm); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits up to ctx for running jobs.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// RunAutoClose runs one auto-close pass.
func (s *Scheduler) RunAutoClose() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	closed, err := s.closer.AutoCloseResolved(ctx, s.closeAfter)
	if err != nil {
		s.log.Error("auto-close failed", zap.Error(err))
		return
	}
	if closed > 0 {
		s.log.Info("auto-closed resolved complaints", zap.Int("count", closed))
	}
}

// RunCategoryWarm refreshes the category cache once.
func (s *Scheduler) RunCategoryWarm() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.warmer.Warm(ctx); err != nil {
		s.log.Warn("category warm failed", zap.Error(err))
	}
}
