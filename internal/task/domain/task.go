package domain

import "time"

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps a string to a Priority, defaulting to medium.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s)
	default:
		return PriorityMedium
	}
}

// TaskStatus represents the current state of a task on the board
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ExternalSource names the remote message a task was generated from.
type ExternalSource struct {
	Type         string `json:"type"`
	MessageID    string `json:"message_id"`
	ConnectionID string `json:"connection_id"`
}

// Task represents an approval item created manually or generated from an
// external message. Tasks generated from messages carry a deterministic
// ID and an ExternalSource reference back to the origin message.
type Task struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	Title          string         `json:"title" gorm:"not null"`
	Description    string         `json:"description,omitempty"`
	DueDate        *time.Time     `json:"due_date"`
	Priority       Priority       `json:"priority" gorm:"default:medium"`
	Status         TaskStatus     `json:"status" gorm:"default:pending"`
	Assignee       string         `json:"assignee,omitempty"`
	ExternalSource ExternalSource `json:"external_source,omitzero" gorm:"embedded;embeddedPrefix:external_"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// FromExternal reports whether the task was generated from an external message.
func (t *Task) FromExternal() bool {
	return t.ExternalSource.MessageID != ""
}
