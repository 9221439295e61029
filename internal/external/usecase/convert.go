package usecase

import (
	"strings"
	"time"

	"approvalhub-backend/internal/external/domain"
	taskdomain "approvalhub-backend/internal/task/domain"
)

// ConvertMessagesToTasks evaluates each connection's active rules against
// the given messages, in storage order, and builds a task for every
// message whose first matching rule fires. Matched messages are marked
// converted in place; already converted messages are skipped, so running
// the conversion twice never duplicates a task.
func ConvertMessagesToTasks(messages []*domain.ExternalMessage, rules []domain.SyncRule) []*taskdomain.Task {
	var tasks []*taskdomain.Task

	for _, msg := range messages {
		if msg.IsConvertedToTask {
			continue
		}

		for i := range rules {
			rule := &rules[i]
			if rule.ConnectionID != msg.ConnectionID || !rule.IsActive {
				continue
			}
			if !MatchesRule(msg, rule) {
				continue
			}

			task := buildTask(msg, rule)
			tasks = append(tasks, task)

			msg.IsConvertedToTask = true
			msg.TaskID = task.ID
			msg.UpdatedAt = time.Now()
			break
		}
	}

	return tasks
}

// buildTask materializes one task from a matched message. The task ID is
// deterministic per message so repeated conversions collapse downstream.
func buildTask(msg *domain.ExternalMessage, rule *domain.SyncRule) *taskdomain.Task {
	title := msg.Subject
	if title == "" {
		title = truncateRunes(firstLine(msg.Body), 100)
	}
	if title == "" {
		title = string(msg.MessageType) + " message"
	}

	description := "[" + strings.ToUpper(string(msg.MessageType)) + "] " + msg.RoomName +
		"\nFrom: " + msg.SenderName +
		"\n\n" + truncateRunes(msg.Body, 500)

	priority := rule.DefaultPriority
	if priority == "" {
		priority = taskdomain.PriorityMedium
	}

	assignee := rule.DefaultAssignee
	if assignee == "" {
		assignee = "Auto-created from " + string(msg.MessageType)
	}

	now := time.Now()
	return &taskdomain.Task{
		ID:          domain.TaskID(msg.MessageType, msg.ExternalMessageID),
		Title:       title,
		Description: description,
		Status:      taskdomain.TaskStatusPending,
		Priority:    priority,
		Assignee:    assignee,
		ExternalSource: taskdomain.ExternalSource{
			Type:         string(msg.MessageType),
			MessageID:    msg.ExternalMessageID,
			ConnectionID: msg.ConnectionID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
