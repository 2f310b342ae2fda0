// Package scheduler runs periodic maintenance with robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// pruneSchedule is how often in-memory login throttling state is pruned.
const pruneSchedule = "@hourly"

// Enqueuer queues the maintenance tasks.
type Enqueuer interface {
	EnqueueMaintenance() error
}

// Pruner drops expired in-memory state.
type Pruner interface {
	Cleanup()
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// MaintenanceScheduler enqueues maintenance on a cron schedule and prunes
// the login limiter every hour.
type MaintenanceScheduler struct {
	schedule string
	enqueuer Enqueuer
	pruners  []Pruner
	log      *zap.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
}

// NewMaintenanceScheduler creates a scheduler. enqueuer may be nil when the
// task queue is disabled; only pruning runs then.
func NewMaintenanceScheduler(schedule string, enqueuer Enqueuer, log *zap.Logger, pruners ...Pruner) *MaintenanceScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MaintenanceScheduler{
		schedule: schedule,
		enqueuer: enqueuer,
		pruners:  pruners,
		log:      log.Named("scheduler"),
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start registers the jobs and starts the cron loop. It stops when ctx is done.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.enqueuer != nil {
		if err := ValidateSchedule(s.schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
		}
		entryID, err := s.cron.AddFunc(s.schedule, s.RunNow)
		if err != nil {
			return fmt.Errorf("failed to schedule maintenance: %w", err)
		}
		s.entryID = entryID
	}

	if len(s.pruners) > 0 {
		if _, err := s.cron.AddFunc(pruneSchedule, s.prune); err != nil {
			return fmt.Errorf("failed to schedule pruning: %w", err)
		}
	}

	s.cron.Start()
	s.isRunning = true

	if s.enqueuer != nil {
		s.log.Info("maintenance scheduler started",
			zap.String("schedule", s.schedule),
			zap.Time("next_run", s.cron.Entry(s.entryID).Next))
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.log.Info("maintenance scheduler stopped")
}

// RunNow enqueues the maintenance tasks immediately.
func (s *MaintenanceScheduler) RunNow() {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueMaintenance(); err != nil {
		s.log.Error("failed to enqueue maintenance", zap.Error(err))
		return
	}
	s.log.Info("maintenance enqueued")
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the next maintenance run, or the zero time when none is scheduled.
func (s *MaintenanceScheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning || s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *MaintenanceScheduler) prune() {
	for _, p := range s.pruners {
		p.Cleanup()
	}
}
