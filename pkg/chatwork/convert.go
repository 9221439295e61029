package chatwork

import (
	"strings"
	"time"

	taskdomain "approvalhub-backend/internal/task/domain"
)

// ConvertMessageToTask builds a task directly from one Chatwork message,
// without involving sync rules. The output shape matches the tasks the
// rule-based conversion produces.
func ConvertMessageToTask(msg Message, roomName string, defaultPriority taskdomain.Priority) *taskdomain.Task {
	title := truncateRunes(firstLine(msg.Body), 100)
	if title == "" {
		title = "Chatwork message"
	}

	description := "[CHATWORK] " + roomName + "\nFrom: " + msg.Account.Name + "\n\n" + msg.Body

	return &taskdomain.Task{
		ID:          "chatwork_" + msg.MessageID,
		Title:       title,
		Description: description,
		Status:      taskdomain.TaskStatusPending,
		Priority:    defaultPriority,
		Assignee:    "Auto-created from Chatwork",
		CreatedAt:   ParseSendTime(msg.SendTime),
		UpdatedAt:   time.Now(),
		ExternalSource: taskdomain.ExternalSource{
			Type:      "chatwork",
			MessageID: msg.MessageID,
		},
	}
}

// FilterMessagesByKeywords returns the messages whose body contains any
// keyword, case-insensitive. An empty keyword list matches everything.
func FilterMessagesByKeywords(messages []Message, keywords []string) []Message {
	if len(keywords) == 0 {
		return messages
	}

	var matched []Message
	for _, msg := range messages {
		body := strings.ToLower(msg.Body)
		for _, keyword := range keywords {
			if keyword != "" && strings.Contains(body, strings.ToLower(keyword)) {
				matched = append(matched, msg)
				break
			}
		}
	}
	return matched
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
