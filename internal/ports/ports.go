package ports

import (
	"context"

	"github.com/protodo/core/internal/domain/entities"
)

// TaskRepository defines the interface for durable task persistence.
// Implementations return empty collections, not errors, when stored data
// is missing or corrupt; errors are reserved for genuine I/O failures.
type TaskRepository interface {
	LoadTasks(ctx context.Context) ([]entities.Task, error)
	SaveTasks(ctx context.Context, tasks []entities.Task) error
	LoadOrder(ctx context.Context) ([]string, error)
	SaveOrder(ctx context.Context, order []string) error
}

// SyncClient defines the interface to the remote per-user document store.
// Push reports success or failure per task; Pull returns the remote
// collection in arrival order.
type SyncClient interface {
	Push(ctx context.Context, userID string, tasks []entities.Task) ([]PushResult, error)
	Pull(ctx context.Context, userID string) ([]entities.Task, error)
}

// PushResult is the outcome of pushing a single task to the remote store.
type PushResult struct {
	TaskID string `json:"task_id"`
	Synced bool   `json:"synced"`
	Error  string `json:"error,omitempty"`
}

// CreateTaskRequest is a draft for a new task.
type CreateTaskRequest struct {
	Text      string              `json:"text" validate:"required"`
	Notes     string              `json:"notes"`
	Priority  entities.Priority   `json:"priority" validate:"omitempty,oneof=high medium low"`
	DueDate   string              `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Category  string              `json:"category"`
	Recurring entities.Recurrence `json:"recurring" validate:"omitempty,oneof=none daily weekly monthly"`
	Reminder  string              `json:"reminder"`
}

// UpdateTaskRequest patches an existing task. Nil fields are left
// untouched; invalid due dates and priorities are ignored rather than
// rejected, retaining the previous value.
type UpdateTaskRequest struct {
	Text      *string              `json:"text"`
	Notes     *string              `json:"notes"`
	Priority  *entities.Priority   `json:"priority"`
	DueDate   *string              `json:"dueDate"`
	Category  *string              `json:"category"`
	Recurring *entities.Recurrence `json:"recurring"`
	Reminder  *string              `json:"reminder"`
}

// SubtaskRequest carries a subtask title for add and rename operations.
type SubtaskRequest struct {
	Text string `json:"text"`
}

// ReorderRequest moves a dragged task immediately before a target task in
// the manual order index.
type ReorderRequest struct {
	DraggedID string `json:"dragged_id" validate:"required"`
	TargetID  string `json:"target_id" validate:"required"`
}
