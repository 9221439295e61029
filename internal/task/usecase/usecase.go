package usecase

import (
	"approvalhub-backend/internal/task/domain"
)

// TaskUsecase defines the interface for task business logic
type TaskUsecase interface {
	// CreateTask creates a new task manually
	CreateTask(title, description string, dueDate *string, priority, assignee string) (*domain.Task, error)

	// GetTaskByID retrieves a task by ID
	GetTaskByID(taskID string) (*domain.Task, error)

	// GetTasks retrieves tasks with an optional status filter
	GetTasks(status *string, limit, offset int) ([]*domain.Task, int64, error)

	// UpdateTask updates an existing task
	UpdateTask(taskID string, updates TaskUpdateRequest) (*domain.Task, error)

	// DeleteTask deletes a task
	DeleteTask(taskID string) error

	// CreateFromExternal stores a task generated from an external message.
	// Task IDs are deterministic per source message, so re-converting an
	// already-converted message is a no-op.
	CreateFromExternal(task *domain.Task) error
}

// TaskUpdateRequest represents the fields that can be updated
type TaskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
	Assignee    *string `json:"assignee,omitempty"`
}
