package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
)

// SweepEngine periodically drops expired execution cache entries.
// Expired entries are already invisible to Get; sweeping only reclaims memory.
type SweepEngine struct {
	cache    secondary.ExecutionCache
	interval time.Duration
	logger   primary.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweepEngine(cache secondary.ExecutionCache, interval time.Duration, logger primary.Logger) *SweepEngine {
	return &SweepEngine{
		cache:    cache,
		interval: interval,
		logger:   logger,
	}
}

// Start is a no-op when interval is not positive
func (s *SweepEngine) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Cache sweeping disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	ticker := time.NewTicker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
	s.logger.Info("Cache sweep engine started", "interval", s.interval.String())
}

func (s *SweepEngine) SweepOnce(ctx context.Context) int {
	removed := s.cache.Sweep(ctx)
	if removed > 0 {
		s.logger.Debug("Swept expired cache entries", "removed", removed)
	}
	return removed
}

func (s *SweepEngine) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
