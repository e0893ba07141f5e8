package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Interval    time.Duration `json:"interval"`
	LastRun     time.Time     `json:"lastRun,omitzero"`
	NextRun     time.Time     `json:"nextRun,omitzero"`
	LastError   string        `json:"lastError,omitempty"`
	LastSuccess time.Time     `json:"lastSuccess,omitzero"`
	Enabled     bool          `json:"enabled"`
}

// IsDue reports whether the task should run at now.
func (t ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	TaskID         string    `json:"taskId"`
	StartedAt      time.Time `json:"startedAt"`
	EndedAt        time.Time `json:"endedAt"`
	Success        bool      `json:"success"`
	Error          string    `json:"error,omitempty"`
	ItemsProcessed int       `json:"itemsProcessed"`
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// Task IDs for built-in tasks.
const (
	TaskIDRetentionSweep = "retention-sweep"
	TaskIDOrphanSweep    = "orphan-sweep"
)

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
// The retention task polls often; the sweeper's own throttle decides
// whether a pass actually prunes.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDRetentionSweep: {
				Enabled:  true,
				Interval: 6 * time.Hour,
			},
			TaskIDOrphanSweep: {
				Enabled:  true,
				Interval: 15 * time.Minute,
			},
		},
	}
}
