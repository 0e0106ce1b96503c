package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is an end state of a task attempt.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// DefaultMaxRetries is applied to tasks created without an explicit limit.
const DefaultMaxRetries = 3

// Task is a unit of work dispatched to a device.
//
// Invariants maintained by the task service:
//   - RetryCount never exceeds MaxRetries
//   - StartedAt is set at most once per attempt
//   - CompletedAt is set only when Status is completed or failed
type Task struct {
	ID           uuid.UUID      `json:"id"`
	DeviceID     uuid.UUID      `json:"device_id"`
	Name         string         `json:"name"`
	TaskType     string         `json:"task_type"`
	Status       TaskStatus     `json:"status"`
	Payload      map[string]any `json:"payload"`
	Result       map[string]any `json:"result,omitempty"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TaskFilter narrows List results.
type TaskFilter struct {
	Status   TaskStatus
	DeviceID uuid.UUID
	TaskType string
	Offset   int
	Limit    int
}

// TaskStats summarises tasks per status.
type TaskStats struct {
	Total          int     `json:"total_tasks"`
	Pending        int     `json:"pending_tasks"`
	Running        int     `json:"running_tasks"`
	Completed      int     `json:"completed_tasks"`
	Failed         int     `json:"failed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// TaskRepository is the persistence contract for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[TaskStatus]int, error)
}
