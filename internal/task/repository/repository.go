package repository

import (
	"approvalhub-backend/internal/task/domain"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *domain.Task) error

	// FindByID finds a task by its ID; returns nil, nil when absent
	FindByID(id string) (*domain.Task, error)

	// FindAll returns tasks with an optional status filter, newest first
	FindAll(status *domain.TaskStatus, limit, offset int) ([]*domain.Task, int64, error)

	// Update updates an existing task
	Update(task *domain.Task) error

	// Delete deletes a task by ID
	Delete(id string) error
}
