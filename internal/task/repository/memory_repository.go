package repository

import (
	"sort"
	"sync"
	"time"

	"approvalhub-backend/internal/task/domain"

	"github.com/google/uuid"
)

// memoryTaskRepository is an in-memory TaskRepository. It backs tests and
// the no-database startup mode.
type memoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewMemoryTaskRepository creates an in-memory TaskRepository.
func NewMemoryTaskRepository() TaskRepository {
	return &memoryTaskRepository{tasks: make(map[string]*domain.Task)}
}

func (r *memoryTaskRepository) Create(task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	task.UpdatedAt = time.Now()

	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memoryTaskRepository) FindByID(id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	clone := *task
	return &clone, nil
}

func (r *memoryTaskRepository) FindAll(status *domain.TaskStatus, limit, offset int) ([]*domain.Task, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*domain.Task
	for _, task := range r.tasks {
		if status != nil && task.Status != *status {
			continue
		}
		clone := *task
		all = append(all, &clone)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, total, nil
}

func (r *memoryTaskRepository) Update(task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task.UpdatedAt = time.Now()
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memoryTaskRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, id)
	return nil
}
