package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Tables used by SchedulerStore.
const (
	TableScheduledTasks = "scheduled_tasks"
	TableTaskResults    = "task_results"
)

// SchedulerStore implements driven.SchedulerStore on a record store.
type SchedulerStore struct {
	records driven.RecordStore
}

var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// NewSchedulerStore creates a scheduler store over records.
func NewSchedulerStore(records driven.RecordStore) *SchedulerStore {
	return &SchedulerStore{records: records}
}

// GetTask retrieves a scheduled task by ID.
// Returns nil and no error if the task does not exist.
func (s *SchedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	raw, err := s.records.Get(ctx, TableScheduledTasks, taskID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting scheduled task: %w", err)
	}
	var task domain.ScheduledTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("decoding scheduled task %s: %w", taskID, err)
	}
	return &task, nil
}

// ListTasks returns all scheduled tasks ordered by ID.
func (s *SchedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	records, err := s.records.List(ctx, TableScheduledTasks)
	if err != nil {
		return nil, fmt.Errorf("listing scheduled tasks: %w", err)
	}
	tasks := make([]domain.ScheduledTask, 0, len(records))
	for _, r := range records {
		var task domain.ScheduledTask
		if err := json.Unmarshal(r.Value, &task); err != nil {
			return nil, fmt.Errorf("decoding scheduled task %s: %w", r.Key, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// SaveTask creates or updates a task.
func (s *SchedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidInput
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding scheduled task: %w", err)
	}
	if err := s.records.Put(ctx, TableScheduledTasks, task.ID, raw); err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

// DeleteTask removes a task and its history.
func (s *SchedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.records.Delete(ctx, TableScheduledTasks, taskID); err != nil {
		return fmt.Errorf("deleting scheduled task: %w", err)
	}
	results, err := s.results(ctx, taskID)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := s.records.Delete(ctx, TableTaskResults, r.key); err != nil {
			return fmt.Errorf("deleting task result: %w", err)
		}
	}
	return nil
}

// RecordResult appends one execution result.
func (s *SchedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return domain.ErrInvalidInput
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding task result: %w", err)
	}
	if err := s.records.Put(ctx, TableTaskResults, resultKey(result), raw); err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

// GetTaskHistory returns recent results for a task, most recent first.
func (s *SchedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	results, err := s.results(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]domain.TaskResult, len(results))
	for i, r := range results {
		out[i] = r.result
	}
	return out, nil
}

// PruneHistory keeps only the most recent 'keep' results per task.
func (s *SchedulerStore) PruneHistory(ctx context.Context, keep int) error {
	records, err := s.records.List(ctx, TableTaskResults)
	if err != nil {
		return fmt.Errorf("listing task results: %w", err)
	}

	// Keys sort by task then start time, so walk backwards per task.
	seen := make(map[string]int)
	for i := len(records) - 1; i >= 0; i-- {
		taskID, _, ok := strings.Cut(records[i].Key, resultSep)
		if !ok {
			continue
		}
		seen[taskID]++
		if seen[taskID] <= keep {
			continue
		}
		if err := s.records.Delete(ctx, TableTaskResults, records[i].Key); err != nil {
			return fmt.Errorf("pruning task result: %w", err)
		}
	}
	return nil
}

type storedResult struct {
	key    string
	result domain.TaskResult
}

// results returns the stored results of taskID, most recent first.
func (s *SchedulerStore) results(ctx context.Context, taskID string) ([]storedResult, error) {
	records, err := s.records.List(ctx, TableTaskResults)
	if err != nil {
		return nil, fmt.Errorf("listing task results: %w", err)
	}
	prefix := taskID + resultSep
	var out []storedResult
	for _, r := range records {
		if !strings.HasPrefix(r.Key, prefix) {
			continue
		}
		var res domain.TaskResult
		if err := json.Unmarshal(r.Value, &res); err != nil {
			return nil, fmt.Errorf("decoding task result %s: %w", r.Key, err)
		}
		out = append(out, storedResult{key: r.Key, result: res})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].result.StartedAt.After(out[j].result.StartedAt)
	})
	return out, nil
}

const resultSep = "|"

// resultKey orders results by task, then by start time.
func resultKey(r *domain.TaskResult) string {
	return fmt.Sprintf("%s%s%020d", r.TaskID, resultSep, r.StartedAt.UnixNano())
}
