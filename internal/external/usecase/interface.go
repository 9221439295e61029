package usecase

import (
	"context"

	"approvalhub-backend/internal/external/domain"
	taskdomain "approvalhub-backend/internal/task/domain"
)

// ExternalSyncUsecase is the sync engine's public contract: connection
// and rule management, message sync, and rule-based task conversion.
type ExternalSyncUsecase interface {
	GetConnections() ([]domain.Connection, error)
	AddConnection(input ConnectionInput) (*domain.Connection, error)
	UpdateConnection(id string, updates ConnectionUpdate) (*domain.Connection, error)
	DeleteConnection(id string) error

	GetSyncRules() ([]domain.SyncRule, error)
	AddSyncRule(input SyncRuleInput) (*domain.SyncRule, error)
	UpdateSyncRule(id string, updates SyncRuleUpdate) (*domain.SyncRule, error)
	DeleteSyncRule(id string) error

	GetExternalMessages() ([]domain.ExternalMessage, error)

	// SyncMessages pulls messages from the connection's remote service,
	// stores the ones not seen before, and returns them.
	SyncMessages(ctx context.Context, connectionID string) ([]domain.ExternalMessage, error)

	// ConvertMessages runs the active rules of each message's connection
	// over the selected messages (all unconverted ones when messageIDs is
	// empty) and returns the generated tasks.
	ConvertMessages(messageIDs []string) ([]*taskdomain.Task, error)

	// TestConnection validates the connection's credentials against the
	// remote service and returns a short status description.
	TestConnection(ctx context.Context, connectionID string) (string, error)

	// SetTaskSink wires the receiver for generated tasks.
	SetTaskSink(sink TaskSink)
}

// TaskSink receives tasks generated by the conversion step. Implemented
// by the task usecase.
type TaskSink interface {
	CreateFromExternal(task *taskdomain.Task) error
}

// ConnectionInput is the payload for creating a connection.
type ConnectionInput struct {
	ServiceType         string `json:"service_type" binding:"required"`
	ServiceName         string `json:"service_name"`
	AccountEmail        string `json:"account_email"`
	APIToken            string `json:"api_token" binding:"required"`
	IsActive            *bool  `json:"is_active"`
	AutoSyncEnabled     bool   `json:"auto_sync_enabled"`
	SyncIntervalMinutes int    `json:"sync_interval_minutes"`
}

// ConnectionUpdate represents the connection fields that can be updated.
type ConnectionUpdate struct {
	ServiceName         *string `json:"service_name,omitempty"`
	AccountEmail        *string `json:"account_email,omitempty"`
	APIToken            *string `json:"api_token,omitempty"`
	IsActive            *bool   `json:"is_active,omitempty"`
	AutoSyncEnabled     *bool   `json:"auto_sync_enabled,omitempty"`
	SyncIntervalMinutes *int    `json:"sync_interval_minutes,omitempty"`
}

// SyncRuleInput is the payload for creating a sync rule.
type SyncRuleInput struct {
	ConnectionID    string `json:"connection_id" binding:"required"`
	RuleName        string `json:"rule_name"`
	FilterType      string `json:"filter_type" binding:"required"`
	FilterValue     string `json:"filter_value"`
	DefaultPriority string `json:"default_priority"`
	DefaultAssignee string `json:"default_assignee"`
	AutoCreateTask  bool   `json:"auto_create_task"`
	IsActive        *bool  `json:"is_active"`
}

// SyncRuleUpdate represents the rule fields that can be updated.
type SyncRuleUpdate struct {
	RuleName        *string `json:"rule_name,omitempty"`
	FilterType      *string `json:"filter_type,omitempty"`
	FilterValue     *string `json:"filter_value,omitempty"`
	DefaultPriority *string `json:"default_priority,omitempty"`
	DefaultAssignee *string `json:"default_assignee,omitempty"`
	AutoCreateTask  *bool   `json:"auto_create_task,omitempty"`
	IsActive        *bool   `json:"is_active,omitempty"`
}
