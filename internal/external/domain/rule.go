package domain

import (
	"time"

	taskdomain "approvalhub-backend/internal/task/domain"
)

// FilterType selects how a sync rule matches messages.
type FilterType string

const (
	FilterAll     FilterType = "all"
	FilterKeyword FilterType = "keyword"
	FilterSender  FilterType = "sender"
	FilterLabel   FilterType = "label"
	FilterRoom    FilterType = "room"
)

// SyncRule is a message filter plus the task defaults applied when it
// matches. Rules are scoped to one connection and evaluated in storage
// order; the first active rule that matches a message wins.
type SyncRule struct {
	ID              string              `json:"id"`
	ConnectionID    string              `json:"connection_id"`
	RuleName        string              `json:"rule_name"`
	FilterType      FilterType          `json:"filter_type"`
	FilterValue     string              `json:"filter_value"`
	DefaultPriority taskdomain.Priority `json:"default_priority"`
	DefaultAssignee string              `json:"default_assignee"`
	AutoCreateTask  bool                `json:"auto_create_task"`
	IsActive        bool                `json:"is_active"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
