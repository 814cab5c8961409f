package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Second

// TurnTimer periodically forfeits battles whose turn owner went idle.
// A zero timeout disables it; the timeout can change while it runs.
type TurnTimer struct {
	battles  *BattleService
	interval time.Duration
	timeout  atomic.Int64
	logger   *zap.Logger
}

// NewTurnTimer creates a turn timer sweeping every interval
func NewTurnTimer(battles *BattleService, timeout, interval time.Duration, logger *zap.Logger) *TurnTimer {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	t := &TurnTimer{
		battles:  battles,
		interval: interval,
		logger:   logger,
	}
	t.SetTimeout(timeout)
	return t
}

func (t *TurnTimer) SetTimeout(d time.Duration) {
	t.timeout.Store(int64(d))
}

func (t *TurnTimer) Timeout() time.Duration {
	return time.Duration(t.timeout.Load())
}

// Run sweeps until ctx is cancelled
func (t *TurnTimer) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sweep(ctx)
		}
	}
}

func (t *TurnTimer) sweep(ctx context.Context) {
	timeout := t.Timeout()
	if timeout <= 0 {
		return
	}
	n, err := t.battles.ExpireIdleTurns(ctx, timeout)
	if err != nil {
		t.logger.Warn("turn sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		t.logger.Info("expired idle turns", zap.Int("battles", n))
	}
}
