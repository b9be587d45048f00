package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig configures the history retention sweeper.
type RetentionConfig struct {
	// Schedule is a cron expression for sweep runs.
	// Default: "0 3 * * *" (daily at 03:00).
	Schedule string

	// MaxAge is how long history entries are kept. Zero disables sweeping.
	MaxAge time.Duration

	// SweepTimeout bounds a single sweep run. Default: 1 minute.
	SweepTimeout time.Duration
}

// RetentionSweeper expires old history entries on a cron schedule. It only
// ever deletes from the history trail; current records are untouched.
// Sweeping relaxes the versions-equal-history invariant for old records by
// design: that is the age-based expiry the history log permits.
type RetentionSweeper struct {
	store  *Store
	cron   *cron.Cron
	logger *slog.Logger

	mu  sync.Mutex
	cfg RetentionConfig
}

// NewRetentionSweeper creates a sweeper; call Start to begin scheduling.
func NewRetentionSweeper(s *Store, cfg RetentionConfig, logger *slog.Logger) (*RetentionSweeper, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}
	if cfg.SweepTimeout == 0 {
		cfg.SweepTimeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RetentionSweeper{
		store:  s,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger,
	}, nil
}

// Start registers the sweep job and starts the scheduler. A zero MaxAge
// leaves the scheduler idle.
func (rs *RetentionSweeper) Start() error {
	if rs.cfg.MaxAge == 0 {
		rs.logger.Info("history retention disabled, sweeper idle")
		return nil
	}

	if _, err := rs.cron.AddFunc(rs.cfg.Schedule, rs.runSweep); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	rs.cron.Start()
	rs.logger.Info("history retention sweeper started",
		"schedule", rs.cfg.Schedule,
		"max_age", rs.cfg.MaxAge.String(),
	)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (rs *RetentionSweeper) Stop() {
	ctx := rs.cron.Stop()
	<-ctx.Done()
}

// SetMaxAge updates the retention window at runtime, for config reload.
// It takes effect on the next scheduled sweep; it cannot wake an idle
// sweeper that started with retention disabled.
func (rs *RetentionSweeper) SetMaxAge(maxAge time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.cfg.MaxAge = maxAge
}

func (rs *RetentionSweeper) runSweep() {
	rs.mu.Lock()
	maxAge := rs.cfg.MaxAge
	sweepTimeout := rs.cfg.SweepTimeout
	rs.mu.Unlock()
	if maxAge == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := time.Now().Add(-maxAge)
	deleted, err := rs.store.PruneHistory(ctx, cutoff)
	if err != nil {
		rs.logger.Error("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		rs.logger.Info("retention sweep completed",
			"deleted", deleted,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
	}
}
