// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/bahodirov07uz/shop/internal/domain/order"
)

// Sweeper performs one status sweep.
type Sweeper interface {
	Run(ctx context.Context) (order.Result, error)
}

// Scheduler runs a Sweeper on a fixed interval until stopped.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	lg       *zap.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler constructs a Scheduler. A non-positive interval defaults to
// one hour.
func NewScheduler(sweeper Sweeper, interval time.Duration, lg *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, lg: lg}
}

// Start launches the ticker loop. Calling Start on a running Scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(runCtx)
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.lg.Info("Order status scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.lg.Info("Order status scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res, err := s.sweeper.Run(ctx)
	switch {
	case errors.Is(err, order.ErrSweepInProgress):
		s.lg.Debug("Sweep skipped, another instance holds the lock")
	case errors.Is(err, context.Canceled):
	case err != nil:
		s.lg.Error("Sweep failed", zap.Error(err))
	default:
		s.lg.Debug("Sweep tick done",
			zap.Int("scanned", res.Scanned),
			zap.Int("updated", res.Transitioned),
		)
	}
}
