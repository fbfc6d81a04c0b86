package backup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/types"
)

const (
	// DefaultFullInterval spaces full dumps
	DefaultFullInterval = 24 * time.Hour

	// DefaultPartialInterval spaces data-only dumps between fulls
	DefaultPartialInterval = 6 * time.Hour

	// DefaultRetention is the pruning window
	DefaultRetention = 7 * 24 * time.Hour
)

// SchedulerConfig tunes the backup cadence
type SchedulerConfig struct {
	FullInterval    time.Duration
	PartialInterval time.Duration
	Retention       time.Duration
}

// Scheduler runs periodic dumps against every configured target: daily
// full dumps and more frequent data-only dumps. Retention pruning runs
// after each full cycle, never before the dumps.
type Scheduler struct {
	runner  *Runner
	targets []*Target
	config  SchedulerConfig
	stopCh  chan struct{}
	logger  zerolog.Logger
}

// NewScheduler creates a scheduler over the runner and targets
func NewScheduler(runner *Runner, targets []*Target, config SchedulerConfig) *Scheduler {
	if config.FullInterval <= 0 {
		config.FullInterval = DefaultFullInterval
	}
	if config.PartialInterval <= 0 {
		config.PartialInterval = DefaultPartialInterval
	}
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}
	return &Scheduler{
		runner:  runner,
		targets: targets,
		config:  config,
		stopCh:  make(chan struct{}),
		logger:  log.WithComponent("backup-scheduler"),
	}
}

// Start begins the scheduling loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// run is the main scheduling loop
func (s *Scheduler) run() {
	full := time.NewTicker(s.config.FullInterval)
	partial := time.NewTicker(s.config.PartialInterval)
	defer full.Stop()
	defer partial.Stop()

	for {
		select {
		case <-full.C:
			s.cycle(types.BackupModeFull, true)
		case <-partial.C:
			s.cycle(types.BackupModeData, false)
		case <-s.stopCh:
			return
		}
	}
}

// cycle dumps every target with the given strategy and optionally prunes
// afterwards. Errors are logged, not returned: one bad cycle must not stop
// the loop.
func (s *Scheduler) cycle(mode types.BackupMode, prune bool) {
	ctx := context.Background()
	for _, target := range s.targets {
		if _, err := s.runner.RunBackup(ctx, target, mode); err != nil {
			s.logger.Error().
				Str("target", target.Name).
				Str("mode", string(mode)).
				Err(err).
				Msg("Scheduled backup failed")
		}
	}
	if prune {
		if _, err := s.runner.PruneOlderThan(s.config.Retention); err != nil {
			s.logger.Error().Err(err).Msg("Retention pruning failed")
		}
	}
}
