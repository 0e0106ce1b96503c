package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/lekesiz/HECS/internal/domain"
	"github.com/lekesiz/HECS/internal/metrics"
)

// TaskService owns the task lifecycle state machine. Status transitions and
// retry bookkeeping happen here; the HTTP layer only translates requests.
type TaskService struct {
	tasks    domain.TaskRepository
	devices  domain.DeviceRepository
	notifier Notifier
	clock    clockwork.Clock
}

func NewTaskService(tasks domain.TaskRepository, devices domain.DeviceRepository, notifier Notifier, clock clockwork.Clock) *TaskService {
	return &TaskService{
		tasks:    tasks,
		devices:  devices,
		notifier: notifier,
		clock:    clock,
	}
}

// CreateTaskRequest carries the fields of a new task.
type CreateTaskRequest struct {
	Name        string         `json:"name"`
	TaskType    string         `json:"task_type"`
	DeviceID    uuid.UUID      `json:"device_id"`
	Payload     map[string]any `json:"payload"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	MaxRetries  *int           `json:"max_retries"`
}

// UpdateTaskRequest carries a partial task update. Nil fields are left
// untouched.
type UpdateTaskRequest struct {
	Status       *domain.TaskStatus `json:"status"`
	Result       map[string]any     `json:"result"`
	ErrorMessage *string            `json:"error_message"`
}

// Create stores a new task in status pending and broadcasts its creation.
func (s *TaskService) Create(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if req.TaskType == "" {
		return nil, fmt.Errorf("%w: task_type is required", domain.ErrValidation)
	}

	if _, err := s.devices.GetByID(ctx, req.DeviceID); err != nil {
		return nil, fmt.Errorf("failed to resolve target device: %w", err)
	}

	now := s.clock.Now().UTC()
	scheduledAt := req.ScheduledAt
	if scheduledAt == nil {
		scheduledAt = &now
	}
	maxRetries := domain.DefaultMaxRetries
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	task := &domain.Task{
		ID:          uuid.New(),
		DeviceID:    req.DeviceID,
		Name:        req.Name,
		TaskType:    req.TaskType,
		Status:      domain.TaskStatusPending,
		Payload:     payload,
		ScheduledAt: scheduledAt,
		MaxRetries:  maxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	metrics.TaskTransitions.WithLabelValues("created").Inc()
	s.notifier.BroadcastTaskUpdate(taskEventData(task, "created"))
	return task, nil
}

// Get returns one task.
func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// List returns tasks matching the filter, newest first.
func (s *TaskService) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, filter.Status)
	}
	return s.tasks.List(ctx, filter)
}

// Update applies a partial update and advances the lifecycle state machine:
// entering running sets started_at once, entering a terminal state sets
// completed_at. The event is emitted only after the row is written.
func (s *TaskService) Update(ctx context.Context, id uuid.UUID, req UpdateTaskRequest) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()

	if req.Status != nil {
		status := *req.Status
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
		}
		task.Status = status

		switch {
		case status == domain.TaskStatusRunning && task.StartedAt == nil:
			task.StartedAt = &now
		case status.Terminal():
			task.CompletedAt = &now
		}
	}

	if req.Result != nil {
		task.Result = req.Result
	}
	if req.ErrorMessage != nil {
		task.ErrorMessage = req.ErrorMessage
	}
	task.UpdatedAt = now

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	metrics.TaskTransitions.WithLabelValues("updated").Inc()
	s.notifier.BroadcastTaskUpdate(taskEventData(task, "updated"))
	return task, nil
}

// Retry resets a failed or stuck task back to pending for another attempt.
// A task at its retry limit is rejected unchanged and emits nothing.
func (s *TaskService) Retry(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if task.RetryCount >= task.MaxRetries {
		metrics.TaskRetryRejections.Inc()
		return nil, fmt.Errorf("%w: %d of %d attempts used",
			domain.ErrRetryLimitExceeded, task.RetryCount, task.MaxRetries)
	}

	task.Status = domain.TaskStatusPending
	task.RetryCount++
	task.StartedAt = nil
	task.CompletedAt = nil
	task.ErrorMessage = nil
	task.UpdatedAt = s.clock.Now().UTC()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to retry task: %w", err)
	}

	slog.Info("Task queued for retry",
		"task_id", task.ID.String(),
		"retry_count", task.RetryCount,
		"max_retries", task.MaxRetries,
	)
	metrics.TaskTransitions.WithLabelValues("retried").Inc()
	s.notifier.BroadcastTaskUpdate(taskEventData(task, "retried"))
	return task, nil
}

// Delete removes a task permanently. Deletion is terminal, not a lifecycle
// transition; the event is emitted after the row is gone.
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	metrics.TaskTransitions.WithLabelValues("deleted").Inc()
	s.notifier.BroadcastTaskUpdate(taskEventData(task, "deleted"))
	return nil
}

// Stats summarises the fleet's tasks per status.
func (s *TaskService) Stats(ctx context.Context) (*domain.TaskStats, error) {
	counts, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	stats := &domain.TaskStats{
		Pending:   counts[domain.TaskStatusPending],
		Running:   counts[domain.TaskStatusRunning],
		Completed: counts[domain.TaskStatusCompleted],
		Failed:    counts[domain.TaskStatusFailed],
	}
	stats.Total = stats.Pending + stats.Running + stats.Completed + stats.Failed
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return stats, nil
}

// taskEventData is the payload clients receive for task events.
func taskEventData(task *domain.Task, action string) map[string]any {
	data := map[string]any{
		"id":          task.ID.String(),
		"device_id":   task.DeviceID.String(),
		"name":        task.Name,
		"task_type":   task.TaskType,
		"status":      string(task.Status),
		"retry_count": task.RetryCount,
		"action":      action,
	}
	if task.StartedAt != nil {
		data["started_at"] = task.StartedAt.Format(time.RFC3339)
	}
	if task.CompletedAt != nil {
		data["completed_at"] = task.CompletedAt.Format(time.RFC3339)
	}
	return data
}
