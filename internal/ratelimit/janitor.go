package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultCleanupSchedule runs housekeeping every five minutes.
const DefaultCleanupSchedule = "@every 5m"

// Task is one housekeeping step; it returns how many items it removed.
type Task struct {
	Name string
	Run  func() int
}

// Janitor runs housekeeping tasks on a cron schedule: sweeping idle limiter
// windows and dropping expired cache entries.
type Janitor struct {
	cron     *cron.Cron
	schedule string
	tasks    []Task
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
}

// NewJanitor creates a janitor. An empty schedule uses DefaultCleanupSchedule.
func NewJanitor(schedule string, logger *zap.Logger, tasks ...Task) *Janitor {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		cron:     cron.New(),
		schedule: schedule,
		tasks:    tasks,
		logger:   logger,
	}
}

// Start registers the sweep and starts the scheduler.
func (j *Janitor) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return nil
	}
	if _, err := j.cron.AddFunc(j.schedule, j.RunOnce); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.started = true

	j.logger.Info("housekeeping started",
		zap.String("schedule", j.schedule),
		zap.Int("tasks", len(j.tasks)))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish or ctx to end.
func (j *Janitor) Stop(ctx context.Context) {
	j.mu.Lock()
	started := j.started
	j.started = false
	j.mu.Unlock()

	if !started {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
	j.logger.Info("housekeeping stopped")
}

// RunOnce runs every task immediately.
func (j *Janitor) RunOnce() {
	start := time.Now()
	for _, t := range j.tasks {
		removed := t.Run()
		if removed > 0 {
			j.logger.Debug("housekeeping task completed",
				zap.String("task", t.Name),
				zap.Int("removed", removed))
		}
	}
	j.logger.Debug("housekeeping sweep finished", zap.Duration("duration", time.Since(start)))
}
