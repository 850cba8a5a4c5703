package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic log rotation checks on a cron schedule. Rotation
// only ever happens through explicit Rotate calls; appends never rotate.
type Scheduler struct {
	logger   *Logger
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	log      *slog.Logger
	running  bool
}

// NewScheduler creates a rotation scheduler for logger. schedule is a
// standard cron expression; empty disables the scheduler.
func NewScheduler(logger *Logger, schedule string) *Scheduler {
	return &Scheduler{
		logger:   logger,
		schedule: schedule,
		cron:     cron.New(),
		log:      slog.Default().With("component", "audit.scheduler"),
	}
}

// Start begins scheduled rotation and stops when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.log.Info("rotation schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runRotation); err != nil {
		return fmt.Errorf("failed to schedule rotation: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.log.Info("rotation scheduler started", "schedule", s.schedule, "path", s.logger.Path())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runRotation() {
	if err := s.logger.Rotate(); err != nil {
		s.log.Warn("scheduled rotation failed", "error", err)
	}
}

// Stop halts the scheduler. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.log.Info("rotation scheduler stopped")
}
