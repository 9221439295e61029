package usecase

import (
	"errors"
	"time"

	"approvalhub-backend/internal/task/domain"
	"approvalhub-backend/internal/task/repository"

	"github.com/google/uuid"
)

// ErrTaskNotFound is returned when a task ID does not exist.
var ErrTaskNotFound = errors.New("task not found")

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo repository.TaskRepository
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository) TaskUsecase {
	return &taskUsecase{
		taskRepo: taskRepo,
	}
}

func (u *taskUsecase) CreateTask(title, description string, dueDate *string, priority, assignee string) (*domain.Task, error) {
	task := &domain.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Priority:    domain.ParsePriority(priority),
		Status:      domain.TaskStatusPending,
		Assignee:    assignee,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if dueDate != nil && *dueDate != "" {
		parsed, err := time.Parse(time.RFC3339, *dueDate)
		if err != nil {
			return nil, errors.New("invalid due_date format, expected RFC3339")
		}
		task.DueDate = &parsed
	}

	if err := u.taskRepo.Create(task); err != nil {
		return nil, err
	}

	return task, nil
}

func (u *taskUsecase) GetTaskByID(taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (u *taskUsecase) GetTasks(status *string, limit, offset int) ([]*domain.Task, int64, error) {
	var statusFilter *domain.TaskStatus
	if status != nil && *status != "" {
		s := domain.TaskStatus(*status)
		statusFilter = &s
	}

	if limit <= 0 {
		limit = 50
	}

	return u.taskRepo.FindAll(statusFilter, limit, offset)
}

func (u *taskUsecase) UpdateTask(taskID string, updates TaskUpdateRequest) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if updates.Title != nil {
		task.Title = *updates.Title
	}
	if updates.Description != nil {
		task.Description = *updates.Description
	}
	if updates.DueDate != nil {
		if *updates.DueDate == "" {
			task.DueDate = nil
		} else {
			parsed, err := time.Parse(time.RFC3339, *updates.DueDate)
			if err != nil {
				return nil, errors.New("invalid due_date format, expected RFC3339")
			}
			task.DueDate = &parsed
		}
	}
	if updates.Priority != nil {
		task.Priority = domain.ParsePriority(*updates.Priority)
	}
	if updates.Status != nil {
		task.Status = domain.TaskStatus(*updates.Status)
	}
	if updates.Assignee != nil {
		task.Assignee = *updates.Assignee
	}

	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}

	return task, nil
}

func (u *taskUsecase) DeleteTask(taskID string) error {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrTaskNotFound
	}

	return u.taskRepo.Delete(taskID)
}

func (u *taskUsecase) CreateFromExternal(task *domain.Task) error {
	existing, err := u.taskRepo.FindByID(task.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	return u.taskRepo.Create(task)
}
