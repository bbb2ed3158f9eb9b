package paymentsvc

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires stale PENDING intents. The sweep is a single
// conditional UPDATE, so re-running it has no additional effect.
type Sweeper struct {
	svc      Service
	log      *slog.Logger
	interval time.Duration
}

func NewSweeper(svc Service, log *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{svc: svc, log: log, interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		s.log.Info("intent expiry sweeper started", "interval", s.interval)
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := s.svc.ExpireStale(ctx)
				if err != nil {
					s.log.Error("intent expiry sweep failed", "err", err)
					continue
				}
				if n > 0 {
					s.log.Info("expired stale intents", "count", n)
				}
			}
		}
	}()
}
