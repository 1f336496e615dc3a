// Package jobs runs cron-scheduled background maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"socialhub/pkg/logger"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"
)

// PresenceStore is the part of the Redis presence store the sweeper uses.
type PresenceStore interface {
	CleanupStalePresence(ctx context.Context, maxAge time.Duration, keep func(userID string) bool) (int64, error)
}

// OnlineChecker reports whether this process still holds a connection for
// a user.
type OnlineChecker interface {
	IsOnlineString(userID string) bool
}

type SweepRecorder interface {
	PresenceSwept(n int64)
}

// PresenceSweeper marks users offline in Redis when their heartbeat went
// stale, for example after a crash skipped the normal disconnect path.
type PresenceSweeper struct {
	store    PresenceStore
	online   OnlineChecker
	recorder SweepRecorder
	cronExpr string
	maxAge   time.Duration
	log      *zap.Logger
}

func NewPresenceSweeper(store PresenceStore, online OnlineChecker, recorder SweepRecorder, cronExpr string, maxAge time.Duration, log *logger.Logger) (*PresenceSweeper, error) {
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid presence sweep cron expression: %s", cronExpr)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &PresenceSweeper{
		store:    store,
		online:   online,
		recorder: recorder,
		cronExpr: cronExpr,
		maxAge:   maxAge,
		log:      log.Named("presence_sweeper"),
	}, nil
}

// Start runs the scheduler until the returned cancel func is called or ctx
// ends.
func (s *PresenceSweeper) Start(ctx context.Context) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go s.run(ctx)
	s.log.Info("presence sweeper started", zap.String("cron", s.cronExpr))
	return cancel
}

// RunOnce performs a single sweep.
func (s *PresenceSweeper) RunOnce(ctx context.Context) (int64, error) {
	var keep func(string) bool
	if s.online != nil {
		keep = s.online.IsOnlineString
	}
	n, err := s.store.CleanupStalePresence(ctx, s.maxAge, keep)
	if s.recorder != nil {
		s.recorder.PresenceSwept(n)
	}
	return n, err
}

func (s *PresenceSweeper) run(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(s.cronExpr, time.Now().UTC(), false)
		if err != nil {
			s.log.Error("next tick failed", zap.Error(err))
			if !sleep(ctx, 30*time.Second) {
				return
			}
			continue
		}

		if !sleep(ctx, time.Until(next)) {
			s.log.Info("presence sweeper stopping")
			return
		}

		n, err := s.RunOnce(ctx)
		if err != nil {
			s.log.Error("presence sweep failed", zap.Error(err))
			continue
		}
		if n > 0 {
			s.log.Info("presence sweep", zap.Int64("marked_offline", n))
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
