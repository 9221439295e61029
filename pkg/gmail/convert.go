package gmail

import (
	"strings"
	"time"

	taskdomain "approvalhub-backend/internal/task/domain"

	"google.golang.org/api/gmail/v1"
)

// ConvertMessageToTask builds a task directly from one Gmail message,
// without involving sync rules. Messages labeled IMPORTANT or STARRED
// are escalated to high priority.
func ConvertMessageToTask(msg *gmail.Message, defaultPriority taskdomain.Priority) *taskdomain.Task {
	subject := GetHeader(msg, "Subject")
	from := GetHeader(msg, "From")
	date := GetHeader(msg, "Date")
	body := GetBody(msg)

	title := subject
	if title == "" {
		title = "Gmail message"
	}

	bodyPreview := truncateRunes(body, 500)
	if len([]rune(body)) > 500 {
		bodyPreview += "..."
	}
	description := "[GMAIL] " + from + "\nDate: " + date + "\n\nSubject: " + subject + "\n\n" + bodyPreview

	priority := defaultPriority
	if hasLabel(msg.LabelIds, "IMPORTANT") || hasLabel(msg.LabelIds, "STARRED") {
		priority = taskdomain.PriorityHigh
	}

	return &taskdomain.Task{
		ID:          "gmail_" + msg.Id,
		Title:       title,
		Description: description,
		Status:      taskdomain.TaskStatusPending,
		Priority:    priority,
		Assignee:    "Auto-created from Gmail",
		CreatedAt:   ReceivedAt(msg),
		UpdatedAt:   time.Now(),
		ExternalSource: taskdomain.ExternalSource{
			Type:      "gmail",
			MessageID: msg.Id,
		},
	}
}

// FilterMessagesByKeywords returns the messages whose subject or body
// contains any keyword, case-insensitive.
func FilterMessagesByKeywords(messages []*gmail.Message, keywords []string) []*gmail.Message {
	if len(keywords) == 0 {
		return messages
	}

	var matched []*gmail.Message
	for _, msg := range messages {
		subject := strings.ToLower(GetHeader(msg, "Subject"))
		body := strings.ToLower(GetBody(msg))
		for _, keyword := range keywords {
			k := strings.ToLower(keyword)
			if k != "" && (strings.Contains(subject, k) || strings.Contains(body, k)) {
				matched = append(matched, msg)
				break
			}
		}
	}
	return matched
}

// FilterMessagesBySender returns the messages whose From header contains
// any of the given addresses, case-insensitive.
func FilterMessagesBySender(messages []*gmail.Message, senderEmails []string) []*gmail.Message {
	if len(senderEmails) == 0 {
		return messages
	}

	var matched []*gmail.Message
	for _, msg := range messages {
		from := strings.ToLower(GetHeader(msg, "From"))
		for _, email := range senderEmails {
			if email != "" && strings.Contains(from, strings.ToLower(email)) {
				matched = append(matched, msg)
				break
			}
		}
	}
	return matched
}

// FilterMessagesByLabels returns the messages carrying any of the given
// label IDs.
func FilterMessagesByLabels(messages []*gmail.Message, labelIDs []string) []*gmail.Message {
	if len(labelIDs) == 0 {
		return messages
	}

	var matched []*gmail.Message
	for _, msg := range messages {
		for _, labelID := range labelIDs {
			if hasLabel(msg.LabelIds, labelID) {
				matched = append(matched, msg)
				break
			}
		}
	}
	return matched
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
