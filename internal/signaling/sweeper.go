package signaling

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultSweepInterval = 30 * time.Second

// Sweeper periodically removes orphaned call sessions: offers nobody
// answered and nobody hung up.
type Sweeper struct {
	exchange  *Exchange
	interval  time.Duration
	logger    *zap.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewSweeper(exchange *Exchange, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		exchange: exchange,
		interval: interval,
		logger:   logger.With(zap.String("component", "call-sweeper")),
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop in background. Only the first call starts it.
func (s *Sweeper) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
		s.logger.Info("call sweeper started", zap.Duration("interval", s.interval))
	})
}

// Stop shuts the loop down and waits for an in-progress sweep.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.logger.Info("call sweeper stopped")
	})
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			n, err := s.exchange.Sweep(ctx)
			if err != nil {
				s.logger.Warn("call sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info("orphaned call sessions removed", zap.Int("count", n))
			}
		}
	}
}
